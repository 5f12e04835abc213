package lang

import "testing"

func TestDetect_ShortText(t *testing.T) {
	for _, text := range []string{"", "   ", "hi", "ok then"} {
		if got := Detect(text); got != Unknown {
			t.Fatalf("Detect(%q): got %q, want %q", text, got, Unknown)
		}
	}
}

func TestDetect_English(t *testing.T) {
	text := "The weather station on the northern ridge reported steady readings " +
		"throughout the winter, and the maintenance crew replaced both anemometers " +
		"before the spring thaw made the access road impassable."
	if got := Detect(text); got != "en" {
		t.Fatalf("got %q, want en", got)
	}
}

func TestDetect_German(t *testing.T) {
	text := "Die Wetterstation auf dem nördlichen Bergrücken meldete den ganzen " +
		"Winter über stabile Messwerte, und das Wartungsteam tauschte beide " +
		"Windmesser aus, bevor die Schneeschmelze die Zufahrtsstraße unpassierbar machte."
	if got := Detect(text); got != "de" {
		t.Fatalf("got %q, want de", got)
	}
}

func TestDetect_TruncatesLongInput(t *testing.T) {
	long := make([]byte, 0, sampleLimit*4)
	sentence := "Long documents are sampled rather than scanned in full because the opening text settles the language. "
	for len(long) < sampleLimit*4 {
		long = append(long, sentence...)
	}
	if got := Detect(string(long)); got != "en" {
		t.Fatalf("got %q, want en", got)
	}
}
