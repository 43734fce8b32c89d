package main

import "testing"

func TestParseArgsDefaultsBitrate(t *testing.T) {
	bitrate, tokens := parseArgs([]string{"/dev/ttyUSB0"})
	if bitrate != defaultBitrate || tokens != nil {
		t.Fatalf("parseArgs(port only) = (%d, %v), want (%d, nil)", bitrate, tokens, defaultBitrate)
	}
}

func TestParseArgsExplicitBitrate(t *testing.T) {
	bitrate, tokens := parseArgs([]string{"/dev/ttyUSB0", "38400", "C", "MYCALL"})
	if bitrate != 38400 {
		t.Fatalf("bitrate = %d, want 38400", bitrate)
	}
	if len(tokens) != 2 || tokens[0] != "C" || tokens[1] != "MYCALL" {
		t.Fatalf("tokens = %v, want [C MYCALL]", tokens)
	}
}

func TestParseArgsNonNumericSecondArgIsATncToken(t *testing.T) {
	bitrate, tokens := parseArgs([]string{"/dev/ttyUSB0", "C", "MYCALL"})
	if bitrate != defaultBitrate {
		t.Fatalf("bitrate = %d, want default %d", bitrate, defaultBitrate)
	}
	if len(tokens) != 2 || tokens[0] != "C" || tokens[1] != "MYCALL" {
		t.Fatalf("tokens = %v, want [C MYCALL]", tokens)
	}
}
