package inference

import "testing"

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in      string
		want    Provider
		wantErr bool
	}{
		{"", ProviderCPU, false},
		{"cpu", ProviderCPU, false},
		{"CoreML", ProviderCoreML, false},
		{"tpu", "", true},
	}
	for _, tt := range tests {
		got, err := ParseProvider(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseProvider(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseProvider(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewSessionRequiresInitialize(t *testing.T) {
	if _, err := NewSession("model.onnx", []string{"in"}, []string{"out"}, ProviderCPU); err == nil {
		t.Fatal("expected error before Initialize")
	}
	if _, err := Inspect("model.onnx"); err == nil {
		t.Fatal("expected error before Initialize")
	}
}
