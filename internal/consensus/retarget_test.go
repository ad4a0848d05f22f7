package consensus

import "testing"

func TestCalcNextTarget_FasterThanExpectedRaisesTarget(t *testing.T) {
	got := CalcNextTarget(1000, 5, 10)
	if got <= 1000 {
		t.Errorf("CalcNextTarget(1000, 5, 10) = %d, want > 1000 (blocks came faster, target should rise)", got)
	}
}

func TestCalcNextTarget_SlowerThanExpectedLowersTarget(t *testing.T) {
	got := CalcNextTarget(1000, 20, 10)
	if got >= 1000 {
		t.Errorf("CalcNextTarget(1000, 20, 10) = %d, want < 1000 (blocks came slower, target should fall)", got)
	}
}

func TestCalcNextTarget_ClampsExtremeSpans(t *testing.T) {
	// expectedTimeSpan/4 == 2, so an actual span of 1 clamps to the same
	// result as an actual span of exactly 2 (the floor of the clamp).
	atFloor := CalcNextTarget(1000, 2, 10)
	belowFloor := CalcNextTarget(1000, 1, 10)
	if belowFloor != atFloor {
		t.Errorf("an actual span below expected/4 should clamp to the same result as the floor: got %d, want %d", belowFloor, atFloor)
	}

	atCeiling := CalcNextTarget(1000, 40, 10)
	aboveCeiling := CalcNextTarget(1000, 1_000_000, 10)
	if aboveCeiling != atCeiling {
		t.Errorf("an actual span above expected*4 should clamp to the same result as the ceiling: got %d, want %d", aboveCeiling, atCeiling)
	}
}

func TestCalcNextTarget_ZeroExpectedSpanIsNoOp(t *testing.T) {
	if got := CalcNextTarget(1000, 10, 0); got != 1000 {
		t.Errorf("CalcNextTarget with expectedTimeSpan=0 = %d, want unchanged 1000", got)
	}
}

func TestCalcNextTarget_NeverReturnsZero(t *testing.T) {
	if got := CalcNextTarget(1, 1_000_000, 1); got == 0 {
		t.Error("CalcNextTarget should floor at 1, never return 0")
	}
}

func TestProofTarget_HalvesWithFloor(t *testing.T) {
	if got := ProofTarget(100); got != 50 {
		t.Errorf("ProofTarget(100) = %d, want 50", got)
	}
	if got := ProofTarget(1); got != 1 {
		t.Errorf("ProofTarget(1) = %d, want 1 (floored)", got)
	}
	if got := ProofTarget(0); got != 1 {
		t.Errorf("ProofTarget(0) = %d, want 1 (floored)", got)
	}
}

func TestCoinbaseTarget_TracksAnchorTime(t *testing.T) {
	got := CoinbaseTarget(1000, 0, 5, 10)
	if got <= 1000 {
		t.Errorf("a block produced faster than anchor_time should raise the coinbase target, got %d", got)
	}
}

func TestCoinbaseReward_DecaysWithHeight(t *testing.T) {
	early := CoinbaseReward(1_100_000_000_000_000, 0, 20, 0, 20)
	late := CoinbaseReward(1_100_000_000_000_000, 50_000_000, 20, 0, 20)
	if late > early {
		t.Error("reward at a much later height should not exceed the reward at height 0")
	}
}

func TestCoinbaseReward_ZeroAnchorTimeYieldsZero(t *testing.T) {
	if got := CoinbaseReward(1_000_000, 0, 0, 0, 10); got != 0 {
		t.Errorf("CoinbaseReward with anchorTime=0 = %d, want 0", got)
	}
}
