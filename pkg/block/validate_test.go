package block

import (
	"errors"
	"testing"

	"github.com/klingon-tech/klingnet-ledger/pkg/crypto"
	"github.com/klingon-tech/klingnet-ledger/pkg/transaction"
	"github.com/klingon-tech/klingnet-ledger/pkg/types"
)

func testTransaction(t *testing.T, seed string) *transaction.Transaction {
	t.Helper()
	pid := types.ProgramID(crypto.Hash([]byte(seed)))
	tx := transaction.NewDeploy(types.Hash{}, transaction.Deploy{
		ProgramID: pid,
		Fee: transaction.Transition{
			ID:        crypto.Hash([]byte(seed + "/fee")),
			ProgramID: pid,
			Function:  "fee",
		},
	})
	id, err := tx.ComputeID()
	if err != nil {
		t.Fatalf("ComputeID: %v", err)
	}
	tx.ID = id
	return tx
}

func testGenesisBlock() *Block {
	header := &Header{Metadata: Metadata{Height: 0}}
	return NewBlock(types.Hash{}, header, nil, nil)
}

func testBlockWithTransactions(t *testing.T, height uint64, txs []*transaction.Transaction) *Block {
	t.Helper()
	ids := make([]types.Hash, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
	}
	header := &Header{
		TransactionsRoot: ComputeMerkleRoot(ids),
		Metadata:         Metadata{Height: height},
	}
	return NewBlock(hashOf(0xAA), header, txs, nil)
}

func TestValidate_GenesisAccepted(t *testing.T) {
	blk := testGenesisBlock()
	if err := blk.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestValidate_GenesisWithTransactionsRejected(t *testing.T) {
	blk := testGenesisBlock()
	blk.Transactions = []*transaction.Transaction{testTransaction(t, "p1")}
	if err := blk.Validate(); !errors.Is(err, ErrGenesisWithPayload) {
		t.Errorf("err = %v, want ErrGenesisWithPayload", err)
	}
}

func TestValidate_NonGenesisWithZeroPrevHashRejected(t *testing.T) {
	header := &Header{Metadata: Metadata{Height: 1}}
	blk := NewBlock(types.Hash{}, header, nil, nil)
	if err := blk.Validate(); !errors.Is(err, ErrGenesisPrevHash) {
		t.Errorf("err = %v, want ErrGenesisPrevHash", err)
	}
}

func TestValidate_NilHeaderRejected(t *testing.T) {
	blk := &Block{}
	if err := blk.Validate(); !errors.Is(err, ErrNilHeader) {
		t.Errorf("err = %v, want ErrNilHeader", err)
	}
}

func TestValidate_NilTransactionRejected(t *testing.T) {
	blk := testBlockWithTransactions(t, 1, []*transaction.Transaction{testTransaction(t, "p1")})
	blk.Transactions = append(blk.Transactions, nil)
	if err := blk.Validate(); !errors.Is(err, ErrNilTransaction) {
		t.Errorf("err = %v, want ErrNilTransaction", err)
	}
}

func TestValidate_DuplicateTransactionRejected(t *testing.T) {
	tx := testTransaction(t, "p1")
	blk := testBlockWithTransactions(t, 1, []*transaction.Transaction{tx, tx})
	if err := blk.Validate(); !errors.Is(err, ErrDuplicateTransaction) {
		t.Errorf("err = %v, want ErrDuplicateTransaction", err)
	}
}

func TestValidate_TransactionsRootMismatch(t *testing.T) {
	blk := testBlockWithTransactions(t, 1, []*transaction.Transaction{testTransaction(t, "p1")})
	blk.Header.TransactionsRoot = hashOf(0xFF)
	if err := blk.Validate(); !errors.Is(err, ErrTransactionsRoot) {
		t.Errorf("err = %v, want ErrTransactionsRoot", err)
	}
}

func TestValidate_AcceptsWellFormedNonGenesisBlock(t *testing.T) {
	blk := testBlockWithTransactions(t, 1, []*transaction.Transaction{testTransaction(t, "p1")})
	if err := blk.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestBlock_HashAndHeightHelpers(t *testing.T) {
	blk := testBlockWithTransactions(t, 7, []*transaction.Transaction{testTransaction(t, "p1")})
	if blk.Height() != 7 {
		t.Errorf("Height() = %d, want 7", blk.Height())
	}
	if blk.IsGenesis() {
		t.Error("a block at height 7 should not be genesis")
	}
	if blk.Hash().IsZero() {
		t.Error("Hash() should not be zero for a well-formed block")
	}
}
