package chat

import "testing"

func TestDetectDirectMessage(t *testing.T) {
	detector := Detector{Prefix: "!", PrefixEnabled: true}

	// DMs bypass prefix and mention rules entirely.
	command, addressed := detector.Detect("!deploy app", true, "Relay")
	if !addressed {
		t.Fatal("expected DM to be addressed")
	}
	if command != "!deploy app" {
		t.Fatalf("command = %q, want full text", command)
	}

	command, addressed = detector.Detect("just chatting", true, "")
	if !addressed || command != "just chatting" {
		t.Fatalf("Detect = (%q, %v), want full text addressed", command, addressed)
	}
}

func TestDetectPrefixCommands(t *testing.T) {
	detector := Detector{Prefix: "!", PrefixEnabled: true}

	tests := []struct {
		name          string
		text          string
		wantCommand   string
		wantAddressed bool
	}{
		{name: "prefix strips once", text: "!deploy app", wantCommand: "deploy app", wantAddressed: true},
		{name: "bare prefix is not a command", text: "!", wantAddressed: false},
		{name: "prefix not leading", text: "deploy !app", wantAddressed: false},
		{name: "double prefix keeps second", text: "!!deploy", wantCommand: "!deploy", wantAddressed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, addressed := detector.Detect(tt.text, false, "")
			if addressed != tt.wantAddressed {
				t.Fatalf("addressed = %v, want %v", addressed, tt.wantAddressed)
			}
			if addressed && command != tt.wantCommand {
				t.Fatalf("command = %q, want %q", command, tt.wantCommand)
			}
		})
	}
}

func TestDetectPrefixDisabled(t *testing.T) {
	detector := Detector{Prefix: "!", PrefixEnabled: false}

	if _, addressed := detector.Detect("!deploy app", false, ""); addressed {
		t.Fatal("expected prefix text to be ignored when prefix commands are disabled")
	}
}

func TestDetectMention(t *testing.T) {
	detector := Detector{Prefix: "!", PrefixEnabled: true}

	tests := []struct {
		name          string
		text          string
		botName       string
		wantCommand   string
		wantAddressed bool
	}{
		{name: "mention with colon", text: "Relay: status", botName: "Relay", wantCommand: "status", wantAddressed: true},
		{name: "mention case-insensitive", text: "relay status", botName: "Relay", wantCommand: "status", wantAddressed: true},
		{name: "bare mention is addressed and empty", text: "Relay:", botName: "Relay", wantCommand: "", wantAddressed: true},
		{name: "mention mid-text ignored", text: "ping Relay: status", botName: "Relay", wantAddressed: false},
		{name: "no bot name configured", text: "Relay: status", botName: "", wantAddressed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, addressed := detector.Detect(tt.text, false, tt.botName)
			if addressed != tt.wantAddressed {
				t.Fatalf("addressed = %v, want %v", addressed, tt.wantAddressed)
			}
			if addressed && command != tt.wantCommand {
				t.Fatalf("command = %q, want %q", command, tt.wantCommand)
			}
		})
	}
}

func TestDetectPrefixWinsOverMention(t *testing.T) {
	detector := Detector{Prefix: "!", PrefixEnabled: true}

	command, addressed := detector.Detect("!Relay status", false, "Relay")
	if !addressed {
		t.Fatal("expected message to be addressed")
	}
	if command != "Relay status" {
		t.Fatalf("command = %q, want prefix extraction to win", command)
	}
}

func TestDetectFallsBackToDefaultBotName(t *testing.T) {
	detector := Detector{Prefix: "!", PrefixEnabled: true, DefaultBotName: "Relay"}

	command, addressed := detector.Detect("relay: help", false, "")
	if !addressed || command != "help" {
		t.Fatalf("Detect = (%q, %v), want (help, true)", command, addressed)
	}
}
