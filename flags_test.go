package ps2

import "testing"

func TestUndefinedBitsAreMasked(t *testing.T) {
	cases := []struct {
		name string
		got  byte
		want byte
	}{
		{"config", byte(configFromBits(0xff)), 0b0111_0111},
		{"input port", byte(inputPortFromBits(0xff)), 0b1111_0011},
		{"test port", byte(testPortFromBits(0xff)), 0b0000_1111},
		{"mouse status", byte(mouseStatusFromBits(0xff)), 0b0111_0111},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("expected 0b%08b, got 0b%08b", tc.want, tc.got)
			}
		})
	}
}

func TestAllZeroesStayZero(t *testing.T) {
	if configFromBits(0) != 0 || inputPortFromBits(0) != 0 || mouseStatusFromBits(0) != 0 {
		t.Fatalf("truncation must not fabricate bits")
	}
}

func TestHasRequiresAllBits(t *testing.T) {
	status := StatusOutputFull | StatusSystemFlag
	if !status.Has(StatusOutputFull) {
		t.Fatalf("expected output full bit")
	}
	if status.Has(StatusOutputFull | StatusInputFull) {
		t.Fatalf("Has must require every bit in the flag")
	}
}
