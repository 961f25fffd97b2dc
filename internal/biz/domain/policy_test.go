package domain

import "testing"

func defaults() PolicyDefaults {
	return PolicyDefaults{
		WarnLimit:   3,
		DeleteLinks: true,
		BanOnLimit:  true,
		BannedWords: []string{"badword1", "badword2"},
	}
}

func TestEffective_NilStored(t *testing.T) {
	p := defaults().Effective(nil)

	if p.WarnLimit != 3 {
		t.Errorf("Expected warn limit 3, got %d", p.WarnLimit)
	}
	if !p.DeleteLinks || !p.BanOnLimit {
		t.Error("Expected default toggles on")
	}
	if len(p.BannedWords) != 2 {
		t.Errorf("Expected 2 global words, got %d", len(p.BannedWords))
	}
}

func TestEffective_PartialOverride(t *testing.T) {
	off := false
	limit := 5
	stored := &StoredChatConfig{
		DeleteLinks: &off,
		WarnLimit:   &limit,
		BannedWords: []string{"foo"},
	}

	p := defaults().Effective(stored)

	if p.DeleteLinks {
		t.Error("Expected delete_links overridden to false")
	}
	if p.WarnLimit != 5 {
		t.Errorf("Expected warn limit 5, got %d", p.WarnLimit)
	}
	// Unset field keeps the default
	if !p.BanOnLimit {
		t.Error("Expected ban_on_limit to keep default")
	}
	// Chat words are unioned with the global set
	if _, ok := p.BannedWords["foo"]; !ok {
		t.Error("Expected chat word in effective set")
	}
	if _, ok := p.BannedWords["badword1"]; !ok {
		t.Error("Expected global word in effective set")
	}
}

func TestEffective_IgnoresNonPositiveLimit(t *testing.T) {
	zero := 0
	p := defaults().Effective(&StoredChatConfig{WarnLimit: &zero})
	if p.WarnLimit != 3 {
		t.Errorf("Expected non-positive stored limit ignored, got %d", p.WarnLimit)
	}
}

func TestApply_AddRemoveBanned(t *testing.T) {
	var cfg StoredChatConfig

	cfg.Apply(PolicyUpdate{AddBanned: []string{"Foo", "foo", "bar"}})
	if len(cfg.BannedWords) != 2 {
		t.Errorf("Expected deduplicated words, got %v", cfg.BannedWords)
	}

	// Removing a missing word is a no-op, not an error
	cfg.Apply(PolicyUpdate{RemoveBanned: []string{"missing", "bar"}})
	if len(cfg.BannedWords) != 1 || cfg.BannedWords[0] != "foo" {
		t.Errorf("Expected only foo left, got %v", cfg.BannedWords)
	}
}

func TestApply_TogglesIndependent(t *testing.T) {
	var cfg StoredChatConfig
	on := true

	cfg.Apply(PolicyUpdate{BanOnLimit: &on})

	if cfg.BanOnLimit == nil || !*cfg.BanOnLimit {
		t.Error("Expected ban_on_limit set")
	}
	if cfg.DeleteLinks != nil || cfg.WarnLimit != nil {
		t.Error("Expected untouched fields to stay unset")
	}
}
