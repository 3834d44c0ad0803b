package textsplit

import (
	"reflect"
	"testing"
)

func TestBufferAddYieldsCompleteSentencesAndKeepsRemainder(t *testing.T) {
	b := NewBuffer()

	got := b.Add("Hello world. How are")
	want := []string{"Hello world."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("first Add = %v, want %v", got, want)
	}

	got = b.Add(" you? Fine!")
	want = []string{"How are you?", "Fine!"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("second Add = %v, want %v", got, want)
	}
}

func TestBufferFlushReturnsTrailingPartial(t *testing.T) {
	b := NewBuffer()
	b.Add("trailing thought with no terminator")
	got := b.Flush()
	if got != "trailing thought with no terminator" {
		t.Errorf("Flush() = %q, want trailing text returned verbatim", got)
	}
	if b.Flush() != "" {
		t.Error("Flush() should clear the buffer")
	}
}

func TestSplitHandlesCJKSeparators(t *testing.T) {
	sentences, remainder := Split("你好。天气怎么样？还行", DefaultSeparators)
	want := []string{"你好。", "天气怎么样？"}
	if !reflect.DeepEqual(sentences, want) {
		t.Fatalf("sentences = %v, want %v", sentences, want)
	}
	if remainder != "还行" {
		t.Errorf("remainder = %q, want %q", remainder, "还行")
	}
}
