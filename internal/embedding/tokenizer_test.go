package embedding

import (
	"testing"
)

func TestHashTokenizer_Tokenize(t *testing.T) {
	tok := &HashTokenizer{}
	ids, attn, types := tok.Tokenize("Hello, world", 10)
	if len(ids) != 10 || len(attn) != 10 || len(types) != 10 {
		t.Fatalf("lengths: %d %d %d", len(ids), len(attn), len(types))
	}
	if ids[0] != clsTokenID {
		t.Errorf("expected CLS %d, got %d", clsTokenID, ids[0])
	}
	if ids[3] != sepTokenID {
		t.Errorf("expected SEP at 3, got %d", ids[3])
	}
	if attn[3] != 1 || attn[4] != 0 {
		t.Errorf("attention mask = %v", attn)
	}
	for _, id := range ids[1:3] {
		if id < firstWordID || id >= vocabSize {
			t.Errorf("word id %d out of range", id)
		}
	}
}

func TestHashTokenizer_CaseInsensitive(t *testing.T) {
	tok := &HashTokenizer{}
	a, _, _ := tok.Tokenize("RoDTEP", 8)
	b, _, _ := tok.Tokenize("rodtep", 8)
	if a[1] != b[1] {
		t.Error("tokenization should ignore case")
	}
}

func TestHashTokenizer_Truncates(t *testing.T) {
	tok := &HashTokenizer{}
	ids, attn, _ := tok.Tokenize("a b c d e f g h", 4)
	if ids[3] != sepTokenID {
		t.Errorf("expected SEP in last slot, got %v", ids)
	}
	for i, m := range attn {
		if m != 1 {
			t.Errorf("attn[%d]=%d, want 1", i, m)
		}
	}
}

func TestSplitWords(t *testing.T) {
	words := SplitWords("  a, b.  c-d  ")
	if len(words) != 3 || words[2] != "c-d" {
		t.Errorf("got %v", words)
	}
	if len(SplitWords("")) != 0 {
		t.Error("empty string should return no words")
	}
}

func TestHashString(t *testing.T) {
	h := HashString("abc")
	if h == 0 {
		t.Error("hash should be non-zero")
	}
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
	if HashString("a long enough string to overflow the accumulator many times over") < 0 {
		t.Error("hash should be non-negative")
	}
}
