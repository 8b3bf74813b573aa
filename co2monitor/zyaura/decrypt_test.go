package zyaura

import (
	"testing"

	"github.com/vit1251/go-co2mon/co2monitor"
)

var testKey = co2monitor.Frame{0x62, 0xea, 0x1d, 0x4f, 0x14, 0xfa, 0xe5, 0x6c}

func TestDecrypt(t *testing.T) {
	tests := []struct {
		name string
		raw  co2monitor.Frame
		key  co2monitor.Frame
		want co2monitor.Frame
	}{
		{
			// the mask subtraction alone, exercised without overflow traps
			name: "all zero frame and key",
			raw:  co2monitor.Frame{},
			key:  co2monitor.Frame{},
			want: co2monitor.Frame{0x7c, 0xb9, 0xaa, 0x2a, 0xf9, 0x6d, 0x6d, 0xaa},
		},
		{
			name: "temperature report",
			raw:  co2monitor.Frame{0xc9, 0xb0, 0x50, 0xda, 0x57, 0x7f, 0x66, 0x2f},
			key:  testKey,
			want: co2monitor.Frame{0x42, 0x10, 0x64, 0xb6, 0x0d, 0x00, 0x00, 0x00},
		},
		{
			name: "concentration report",
			raw:  co2monitor.Frame{0x69, 0xb0, 0xc0, 0xda, 0xa7, 0x7f, 0x66, 0x4f},
			key:  testKey,
			want: co2monitor.Frame{0x50, 0x02, 0x58, 0xaa, 0x0d, 0x00, 0x00, 0x00},
		},
		{
			name: "humidity report",
			raw:  co2monitor.Frame{0xe2, 0xb0, 0x48, 0xda, 0x32, 0x7f, 0x66, 0xef},
			key:  testKey,
			want: co2monitor.Frame{0x41, 0x14, 0xc9, 0x1e, 0x0d, 0x00, 0x00, 0x00},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decrypt(tt.raw, tt.key); got != tt.want {
				t.Errorf("Decrypt() = %#02v, want %#02v", got, tt.want)
			}
		})
	}
}

func TestDecryptDeterministic(t *testing.T) {
	raw := co2monitor.Frame{0xc9, 0xb0, 0x50, 0xda, 0x57, 0x7f, 0x66, 0x2f}

	first := Decrypt(raw, testKey)
	second := Decrypt(raw, testKey)
	if first != second {
		t.Errorf("Decrypt() not deterministic: %#02v then %#02v", first, second)
	}
}

func TestDecryptLeavesInputIntact(t *testing.T) {
	raw := co2monitor.Frame{0xc9, 0xb0, 0x50, 0xda, 0x57, 0x7f, 0x66, 0x2f}
	before := raw

	Decrypt(raw, testKey)
	if raw != before {
		t.Errorf("Decrypt() modified its input: %#02v, want %#02v", raw, before)
	}
}
