package server

import "testing"

func TestAssembleStoryText(t *testing.T) {
	tmpl := testTemplate()
	text := assembleStoryText(tmpl, map[int]Submission{
		0: {Word: "wobbly"},
		1: {Word: "platypus"},
		2: {Word: "yodel"},
	})
	want := "The wobbly zookeeper saw a platypus and decided to yodel."
	if text != want {
		t.Fatalf("expected %q, got %q", want, text)
	}
}

func TestAssembleStoryTextMissingSubmissionKeepsToken(t *testing.T) {
	tmpl := testTemplate()
	text := assembleStoryText(tmpl, map[int]Submission{
		0: {Word: "wobbly"},
		2: {Word: "yodel"},
	})
	want := "The wobbly zookeeper saw a {1} and decided to yodel."
	if text != want {
		t.Fatalf("expected %q, got %q", want, text)
	}
}
