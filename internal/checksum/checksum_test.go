package checksum

import "testing"

func TestSum(t *testing.T) {
	// SHA-256 of the empty string.
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != empty {
		t.Errorf("Sum(nil) = %s", got)
	}
	if Sum([]byte("a")) == Sum([]byte("b")) {
		t.Error("different data, same digest")
	}
}

func TestStrings(t *testing.T) {
	if Strings("ab", "c") == Strings("a", "bc") {
		t.Error("part boundaries must affect the digest")
	}
	if Strings("x", "y") != Strings("x", "y") {
		t.Error("digest not deterministic")
	}
	if Strings() == Strings("") {
		t.Error("empty part must differ from no parts")
	}
}
