package permission

import "testing"

func TestCheckSimpleDefaults(t *testing.T) {
	tests := []struct {
		name    string
		command string
		allowed bool
	}{
		{"ls is allowed", "ls -la", true},
		{"cat is allowed", "cat README.md", true},
		{"git status is allowed", "git status", true},
		{"git log is allowed", "git log --oneline", true},
		{"git push is denied", "git push origin main", false},
		{"git commit is denied", "git commit -m wip", false},
		{"git stash list is allowed", "git stash list", true},
		{"git stash drop is denied", "git stash drop", false},
		{"rm is denied", "rm -rf /tmp/x", false},
		{"sudo is denied", "sudo reboot", false},
		{"find without exec is allowed", "find . -name '*.go'", true},
		{"find with exec is denied", "find . -exec rm {} +", false},
		{"gh auth status is allowed", "gh auth status", true},
		{"gh pr list is allowed", "gh pr list", true},
		{"gh pr create is denied", "gh pr create --title x", false},
		{"unknown command is denied", "curl http://evil.example", false},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := c.Check(tt.command)
			if d.Allowed != tt.allowed {
				t.Errorf("Check(%q) = allowed=%v reason=%q, want allowed=%v", tt.command, d.Allowed, d.Reason, tt.allowed)
			}
		})
	}
}

func TestCustomAllowOverridesDefaultDeny(t *testing.T) {
	c := New(WithCustomAllow("git:push"))
	d := c.Check("git push origin main")
	if !d.Allowed {
		t.Fatalf("expected custom allow to override default deny, got denied: %s", d.Reason)
	}
	if !d.OverriddenDeny {
		t.Errorf("expected OverriddenDeny=true")
	}
}

func TestCustomDenyAlwaysWins(t *testing.T) {
	c := New(WithCustomAllow("ls"), WithCustomDeny("ls"))
	d := c.Check("ls -la")
	if d.Allowed {
		t.Fatalf("expected custom deny to win over custom allow")
	}
}

func TestComplexCommandAllowedOnlyIfEveryComponentAllowed(t *testing.T) {
	c := New()

	d := c.Check("git status && git log")
	if !d.Allowed || !d.AllowedByComponents {
		t.Errorf("expected allowed pipeline to be allowed, got %+v", d)
	}

	d = c.Check("git status && git push")
	if d.Allowed {
		t.Errorf("expected pipeline with a denied component to be denied")
	}
}

func TestComplexCommandWithSubstitutionIsDenied(t *testing.T) {
	c := New()
	d := c.Check("ls $(echo /etc) && cat /etc/passwd")
	if d.Allowed {
		t.Errorf("expected command substitution to force a deny")
	}
}

func TestComplexCommandWithRedirectionIsDenied(t *testing.T) {
	c := New()
	d := c.Check("echo hi > /etc/passwd")
	if d.Allowed {
		t.Errorf("expected redirection to force a deny")
	}
}

func TestQuotedArgumentsAreUnquoted(t *testing.T) {
	cmd := Parse(`grep "foo bar" file.txt`)
	if cmd.Head != "grep" {
		t.Fatalf("head = %q, want grep", cmd.Head)
	}
	if len(cmd.Args) != 2 || cmd.Args[0] != "foo bar" {
		t.Errorf("args = %#v, want [\"foo bar\" \"file.txt\"]", cmd.Args)
	}
}

func TestRecorderReceivesEveryDecision(t *testing.T) {
	var got []Decision
	rec := recorderFunc(func(d Decision) { got = append(got, d) })
	c := New(WithRecorder(rec))
	c.Check("ls")
	c.Check("rm -rf /")
	if len(got) != 2 {
		t.Fatalf("expected 2 recorded decisions, got %d", len(got))
	}
	if !got[0].Allowed || got[1].Allowed {
		t.Errorf("unexpected recorded decisions: %+v", got)
	}
}

type recorderFunc func(Decision)

func (f recorderFunc) Record(d Decision) { f(d) }
