package command

import "testing"

func TestConfigBinding(t *testing.T) {
	b := NewConfig(map[string]uint{"mozc-jp": 0, "xkb:us::eng": 1})

	if idx, ok := b.ConfigIndex("xkb:us::eng"); !ok || idx != 1 {
		t.Fatalf("expected index 1, got %d ok=%v", idx, ok)
	}
	if _, ok := b.ConfigIndex("unknown"); ok {
		t.Fatal("expected unknown key to miss")
	}
	if _, ok := b.LayerName("mozc-jp"); ok {
		t.Fatal("config binding must not answer layer lookups")
	}
	if b.IsLog() {
		t.Fatal("config binding is not log-only")
	}
}

func TestLayerBinding(t *testing.T) {
	b := NewLayer(map[string]string{"mozc-jp": "ja"})

	if name, ok := b.LayerName("mozc-jp"); !ok || name != "ja" {
		t.Fatalf("expected layer 'ja', got %q ok=%v", name, ok)
	}
	if _, ok := b.LayerName("ibus:en"); ok {
		t.Fatal("expected unknown key to miss")
	}
}

func TestLogBinding(t *testing.T) {
	b := NewLog()
	if !b.IsLog() {
		t.Fatal("expected log-only binding")
	}
	if _, ok := b.ConfigIndex("anything"); ok {
		t.Fatal("log binding must not answer config lookups")
	}
}
