package cjkscrub

import "testing"

func TestScrubNoOpForNonVietnamese(t *testing.T) {
	in := "這是一個測試"
	got := Scrub(in, "en")
	if got.Output != in {
		t.Fatalf("expected no-op for non-vi target, got %q", got.Output)
	}
	if got.Substituted != 0 || len(got.LeaksFound) != 0 {
		t.Fatalf("expected zero substitutions/leaks for non-vi target, got %+v", got)
	}
}

func TestScrubSubstitutesKnownTable(t *testing.T) {
	got := Scrub("這個人", "vi")
	if got.Substituted != 2 {
		t.Fatalf("expected 2 substitutions, got %d (%q)", got.Substituted, got.Output)
	}
	// 人 has no table entry, so it stays in place and is the one leak.
	if len(got.LeaksFound) != 1 || got.LeaksFound[0] != '人' {
		t.Fatalf("expected the single leak 人, got %v", got.LeaksFound)
	}
}

func TestScrubCountsUnknownLeaksOnce(t *testing.T) {
	// 龍 is a hanzi character with no table entry; appears twice but
	// should be counted as a single distinct leak.
	got := Scrub("龍と龍", "vn")
	if len(got.LeaksFound) != 1 || got.LeaksFound[0] != '龍' {
		t.Fatalf("expected single distinct leak for repeated char, got %v", got.LeaksFound)
	}
	if got.Substituted != 0 {
		t.Fatalf("expected zero substitutions, got %d", got.Substituted)
	}
}

func TestIsVietnameseTargetCaseInsensitive(t *testing.T) {
	for _, lang := range []string{"vi", "VI", "vn", "Vn"} {
		if !IsVietnameseTarget(lang) {
			t.Errorf("expected %q to be recognized as Vietnamese target", lang)
		}
	}
	for _, lang := range []string{"en", "ja", ""} {
		if IsVietnameseTarget(lang) {
			t.Errorf("expected %q to not be recognized as Vietnamese target", lang)
		}
	}
}
