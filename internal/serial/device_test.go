package serial

import (
	"testing"

	goserial "github.com/daedaluz/goserial"
)

// configure's termios2/ioctl calls need a real tty fd, so these tests cover
// only the pure speed-selection logic: standardSpeeds lookup versus the
// custom-speed fallback. The rest of Device is not unit-tested here.

func TestStandardSpeedsKnownBitrate(t *testing.T) {
	speed, ok := standardSpeeds[9600]
	if !ok {
		t.Fatal("9600 should be a standard speed")
	}
	if speed != goserial.B9600 {
		t.Fatalf("standardSpeeds[9600] = %v, want B9600", speed)
	}
}

func TestStandardSpeedsUnknownBitrateFallsBackToCustom(t *testing.T) {
	if _, ok := standardSpeeds[31250]; ok {
		t.Fatal("31250 should not be a standard speed, expected custom-speed fallback")
	}
}

func TestStandardSpeedsCoversCommonRates(t *testing.T) {
	for _, rate := range []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200} {
		if _, ok := standardSpeeds[rate]; !ok {
			t.Fatalf("standardSpeeds missing common rate %d", rate)
		}
	}
}
