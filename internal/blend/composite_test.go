package blend

import "testing"

func approxEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}

func TestNormalOpaqueSourceOverOpaqueBackdrop(t *testing.T) {
	// as=1 should fully replace the backdrop regardless of ab.
	res := Composite(Normal, nil, []float64{0.2, 0.2, 0.2}, 1, []float64{0.8, 0.8, 0.8}, 1)
	if res.Alpha != 1 {
		t.Fatalf("Alpha = %v, want 1", res.Alpha)
	}
	for i, v := range res.Color {
		if !approxEqual(v, 0.8) {
			t.Errorf("Color[%d] = %v, want 0.8", i, v)
		}
	}
}

func TestNormalFullyTransparentSourceLeavesBackdrop(t *testing.T) {
	res := Composite(Normal, nil, []float64{0.3}, 1, []float64{0.9}, 0)
	if res.Alpha != 1 {
		t.Fatalf("Alpha = %v, want 1", res.Alpha)
	}
	if !approxEqual(res.Color[0], 0.3) {
		t.Errorf("Color[0] = %v, want 0.3 (unchanged backdrop)", res.Color[0])
	}
}

func TestNormalZeroResultAlphaWhenBothZero(t *testing.T) {
	res := Composite(Normal, nil, []float64{0.5}, 0, []float64{0.5}, 0)
	if res.Alpha != 0 {
		t.Errorf("Alpha = %v, want 0", res.Alpha)
	}
	if res.Color[0] != 0 {
		t.Errorf("Color[0] = %v, want 0", res.Color[0])
	}
}

func TestKnockoutReplacesBackdrop(t *testing.T) {
	res := Knockout([]float64{0.1, 0.1}, 1, []float64{0.9, 0.9})
	if res.Alpha != 1 {
		t.Fatalf("Alpha = %v, want 1", res.Alpha)
	}
	for i, v := range res.Color {
		if !approxEqual(v, 0.9) {
			t.Errorf("Color[%d] = %v, want 0.9", i, v)
		}
	}
}

func TestIsolatedKnockoutIsSourceVerbatim(t *testing.T) {
	src := []float64{0.11, 0.22, 0.33}
	res := IsolatedKnockout(src, 0.5)
	if res.Alpha != 0.5 {
		t.Errorf("Alpha = %v, want 0.5", res.Alpha)
	}
	for i, v := range res.Color {
		if v != src[i] {
			t.Errorf("Color[%d] = %v, want %v", i, v, src[i])
		}
	}
	// Must be an independent copy, not an alias.
	res.Color[0] = 99
	if src[0] == 99 {
		t.Error("IsolatedKnockout result aliases the source slice")
	}
}

func TestOverprintMaskLeavesUnpaintedChannelsAlone(t *testing.T) {
	result := Result{Color: []float64{0.5, 0.6, 0.7}, Alpha: 1}
	cbOld := []float64{0.1, 0.2, 0.3}
	present := []bool{true, false, true}
	out := OverprintMask(CompatibleOverprint, result, cbOld, present)
	if out.Color[0] != 0.5 {
		t.Errorf("painted channel 0 changed: got %v, want 0.5", out.Color[0])
	}
	if out.Color[1] != 0.2 {
		t.Errorf("unpainted channel 1 should fall back to backdrop 0.2, got %v", out.Color[1])
	}
	if out.Color[2] != 0.7 {
		t.Errorf("painted channel 2 changed: got %v, want 0.7", out.Color[2])
	}
}

func TestOverprintMaskNoopForOtherModes(t *testing.T) {
	result := Result{Color: []float64{0.5}, Alpha: 1}
	out := OverprintMask(Normal, result, []float64{0.1}, []bool{false})
	if out.Color[0] != 0.5 {
		t.Errorf("OverprintMask should be a no-op for Normal mode, got %v", out.Color[0])
	}
}
