package stuckloop

import "testing"

func TestIsStuck(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"cannot proceed", "I cannot proceed without more information.", true},
		{"can't proceed contraction", "I can't proceed with this task.", true},
		{"unable to proceed", "Unable to proceed: missing credentials.", true},
		{"loop mention", "We seem to be stuck in a loop here.", true},
		{"deadlock mention", "This looks like a deadlock between two tools.", true},
		{"exhausted options", "I have exhausted all available options.", true},
		{"exhausted methods", "I have exhausted every known method.", true},
		{"need x to proceed", "I need the API key to proceed.", true},
		{"explained multiple times", "As explained multiple times, this cannot work.", true},
		{"cannot find required", "Cannot find the config file required for this step.", true},
		{"normal progress update", "I found the function and I'm now reading its callers.", false},
		{"case insensitive", "CANNOT PROCEED without write access.", true},
	}

	d := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.IsStuck(tt.text); got != tt.want {
				t.Errorf("IsStuck(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
