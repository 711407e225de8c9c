package fingerprint

import "testing"

func TestNormalize_Deterministic(t *testing.T) {
	in := "El Gobierno  anunció\nnuevas   medidas"
	if Normalize(in) != Normalize(in) {
		t.Error("normalization must be deterministic")
	}
}

func TestNormalize_CollapsesWhitespaceAndCase(t *testing.T) {
	got := Normalize("  The\tQuick   Brown\n\nFox ")
	want := "the quick brown fox"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestNormalize_FoldsAccents(t *testing.T) {
	if Normalize("anunció") != Normalize("anuncio") {
		t.Error("accented and unaccented forms must normalize identically")
	}
	got := Normalize("El Gobierno anunció más medidas económicas")
	want := "el gobierno anuncio mas medidas economicas"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestNormalize_StripsHTML(t *testing.T) {
	raw := `<html><head><style>p{color:red}</style></head>` +
		`<body><p>Breaking <b>news</b> today</p><script>track()</script></body></html>`
	got := Normalize(raw)
	want := "breaking news today"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestNormalize_PlainTextPassthrough(t *testing.T) {
	got := Normalize("no markup here, 3 < 5 is math not a tag or plain")
	if got == "" {
		t.Error("plain text must not be swallowed")
	}
}

func TestNormalize_EquivalentMarkupVariants(t *testing.T) {
	a := Normalize("<p>Shared   article body</p>")
	b := Normalize("Shared article BODY")
	if a != b {
		t.Errorf("markup and plain variants must normalize identically: %q vs %q", a, b)
	}
}
