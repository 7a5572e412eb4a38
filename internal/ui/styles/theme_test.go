// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestNewTheme(t *testing.T) {
	theme := NewTheme()
	if theme == nil {
		t.Fatal("NewTheme() returned nil")
	}

	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Header", theme.Header},
		{"AssistantText", theme.AssistantText},
		{"ErrorText", theme.ErrorText},
		{"InputContainer", theme.InputContainer},
		{"StatusBar", theme.StatusBar},
		{"FormBox", theme.FormBox},
	}
	for _, s := range styles {
		if !strings.Contains(s.style.Render("test"), "test") {
			t.Errorf("%s style should render its content", s.name)
		}
	}
}

func TestNewThemeFor(t *testing.T) {
	if !NewThemeFor("dark").IsDark {
		t.Error("dark theme should report IsDark")
	}
	if NewThemeFor("light").IsDark {
		t.Error("light theme should not report IsDark")
	}
}

func TestLayoutMode(t *testing.T) {
	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
	}

	theme := NewTheme()
	for _, tt := range tests {
		theme.SetSize(tt.width, 24)
		if got := theme.GetLayoutMode(); got != tt.want {
			t.Errorf("width %d: GetLayoutMode() = %v, want %v", tt.width, got, tt.want)
		}
	}
}

func TestIndicator(t *testing.T) {
	if Indicator(true) != "[OK]" || Indicator(false) != "[X]" {
		t.Errorf("Indicator() = %q/%q", Indicator(true), Indicator(false))
	}
	for _, s := range []string{
		StatusIndicators.Success, StatusIndicators.Error, StatusIndicators.Warning,
		StatusIndicators.Info, StatusIndicators.Pending, StatusIndicators.Active,
	} {
		if s == "" {
			t.Error("status indicators must not be empty")
		}
	}
}
