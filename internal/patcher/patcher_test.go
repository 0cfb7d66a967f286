package patcher

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	apperrors "socialpatch.io/socialpatch/internal/pkg/errors"
	"socialpatch.io/socialpatch/internal/pkg/logger"
	"socialpatch.io/socialpatch/internal/pkg/worker"
)

func init() {
	_ = logger.Init("error", "json")
}

const testDir = "/locales"

func newTestFS(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll(testDir, 0o755))
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, testDir+"/"+name, []byte(content), 0o644))
	}
	return fs
}

func newTestPatcher(t *testing.T, fs afero.Fs, mutate func(*Options), poolSize int) *Patcher {
	t.Helper()
	pool, err := worker.NewPool("test", worker.PoolConfig{Size: poolSize})
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	opts := DefaultOptions()
	opts.Dir = testDir
	if mutate != nil {
		mutate(&opts)
	}
	p, err := New(fs, opts, pool)
	require.NoError(t, err)
	return p
}

func readFile(t *testing.T, fs afero.Fs, name string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, testDir+"/"+name)
	require.NoError(t, err)
	return string(data)
}

func TestRun_Scenarios(t *testing.T) {
	files := map[string]string{
		"a.json": `{"footer":{"socials":{"ru":["FB","VK","OK"]}}}`,
		"b.json": `{"footer":{"socials":{"ru":["FB","Twitter","OK"]}}}`,
		"c.json": `{"footer":{"socials":{"xx":["A","B","C"]}}}`,
		"d.json": `{"header":{"title":"no footer here"}}`,
		"e.json": `{"footer":{"copyright":"2024"}}`,
		"f.json": `{"footer":{"socials":{"de":["A","B"]}}}`,
	}
	fs := newTestFS(t, files)
	p := newTestPatcher(t, fs, nil, 1)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{testDir + "/a.json"}, report.UpdatedFiles())
	assert.Equal(t, 6, report.Scanned)
	assert.NotEmpty(t, report.RunID)

	a := readFile(t, fs, "a.json")
	assert.Equal(t, []string{"FB", "VK", "Twitter"}, socialsOf(t, []byte(a), "ru"))

	for _, name := range []string{"b.json", "c.json", "d.json", "e.json", "f.json"} {
		assert.Equal(t, files[name], readFile(t, fs, name), "%s must be byte-for-byte unchanged", name)
	}

	var out bytes.Buffer
	require.NoError(t, report.WriteSummary(&out))
	assert.Equal(t, "Updated "+testDir+"/a.json\n", out.String())
}

func TestRun_Idempotent(t *testing.T) {
	fs := newTestFS(t, map[string]string{
		"ru.json": `{"footer":{"socials":{"ru":["VK","Telegram","OK"]}}}`,
		"zh.json": `{"footer":{"socials":{"zh":["WeChat","Weibo","Douyin"],"ko":["Kakao","Naver","Band"]}}}`,
	})
	p := newTestPatcher(t, fs, nil, 1)

	first, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, first.Files, 2)
	afterFirst := map[string]string{
		"ru.json": readFile(t, fs, "ru.json"),
		"zh.json": readFile(t, fs, "zh.json"),
	}

	second, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second.Files)
	assert.Equal(t, 2, second.Scanned)
	for name, content := range afterFirst {
		assert.Equal(t, content, readFile(t, fs, name))
	}
}

func TestRun_OnlyMatchingFiles(t *testing.T) {
	fs := newTestFS(t, map[string]string{
		"fr.json":     `{"footer":{"socials":{"fr":["A","B","C"]}}}`,
		"notes.txt":   `{"footer":{"socials":{"fr":["A","B","C"]}}}`,
		"skip.json":   `{"footer":{"socials":{"fr":["A","B","C"]}}}`,
		"config.yaml": `footer: {}`,
	})
	require.NoError(t, fs.MkdirAll(testDir+"/nested.json", 0o755))
	p := newTestPatcher(t, fs, func(o *Options) { o.Exclude = []string{"skip.json"} }, 1)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{testDir + "/fr.json"}, report.UpdatedFiles())
	assert.Equal(t, 1, report.Scanned)
	assert.Contains(t, readFile(t, fs, "skip.json"), `"C"`)
}

func TestRun_MalformedAborts(t *testing.T) {
	good := `{"footer":{"socials":{"es":["A","B","C"]}}}`
	fs := newTestFS(t, map[string]string{
		"a.json": `{"footer":{"socials":{"de":["A","B","C"]}}}`,
		"b.json": `{"footer":`,
		"c.json": good,
	})
	p := newTestPatcher(t, fs, nil, 1)

	report, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDocumentParseFailed), "err = %v", err)
	assert.ErrorIs(t, err, ErrMalformedDocument)

	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, testDir+"/b.json", appErr.Path)

	// a.json ran before the failure, c.json never started.
	assert.Equal(t, []string{testDir + "/a.json"}, report.UpdatedFiles())
	assert.Equal(t, "Twitter", gjson.Get(readFile(t, fs, "a.json"), "footer.socials.de.2").String())
	assert.Equal(t, good, readFile(t, fs, "c.json"))
}

func TestRun_WriteFailure(t *testing.T) {
	base := newTestFS(t, map[string]string{
		"a.json": `{"footer":{"socials":{"de":["A","B","C"]}}}`,
	})
	fs := afero.NewReadOnlyFs(base)
	p := newTestPatcher(t, fs, nil, 1)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeFileWriteFailed), "err = %v", err)
}

func TestRun_DryRun(t *testing.T) {
	original := `{"footer":{"socials":{"ko":["Kakao","Naver","Band"]}}}`
	fs := newTestFS(t, map[string]string{"ko.json": original})
	p := newTestPatcher(t, fs, func(o *Options) { o.DryRun = true }, 1)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Files, 1)
	assert.Equal(t, []Change{{Language: "ko", Previous: "Band", Value: "Twitter"}}, report.Files[0].Changes)
	assert.Equal(t, original, readFile(t, fs, "ko.json"))

	var out bytes.Buffer
	require.NoError(t, report.WriteSummary(&out))
	assert.Equal(t, "Would update "+testDir+"/ko.json\n", out.String())
}

func TestRun_ConcurrentKeepsOrder(t *testing.T) {
	files := map[string]string{}
	var want []string
	for _, lang := range DefaultLanguages {
		name := lang + ".json"
		files[name] = `{"footer":{"socials":{"` + lang + `":["A","B","C"]}}}`
		want = append(want, testDir+"/"+name)
	}
	files["en.json"] = `{"footer":{"socials":{"en":["A","B","Twitter"]}}}`
	fs := newTestFS(t, files)
	p := newTestPatcher(t, fs, nil, 4)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(files), report.Scanned)

	got := report.UpdatedFiles()
	assert.ElementsMatch(t, want, got)
	assert.IsIncreasing(t, got)
}

func TestRun_CancelledContext(t *testing.T) {
	original := `{"footer":{"socials":{"ru":["A","B","C"]}}}`
	fs := newTestFS(t, map[string]string{"ru.json": original})
	p := newTestPatcher(t, fs, nil, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Files)
	assert.Equal(t, original, readFile(t, fs, "ru.json"))
}

func TestRun_KeepsPermissions(t *testing.T) {
	fs := newTestFS(t, nil)
	require.NoError(t, afero.WriteFile(fs, testDir+"/sw.json", []byte(`{"footer":{"socials":{"sw":["A","B","C"]}}}`), 0o600))
	p := newTestPatcher(t, fs, nil, 1)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	info, err := fs.Stat(testDir + "/sw.json")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRun_LogsPoolMetrics(t *testing.T) {
	var logs bytes.Buffer
	require.NoError(t, logger.InitWriter("debug", "json", &logs))
	t.Cleanup(func() { _ = logger.Init("error", "json") })

	fs := newTestFS(t, map[string]string{
		"a.json": `{"footer":{"socials":{"ru":["FB","VK","OK"]}}}`,
	})
	p := newTestPatcher(t, fs, nil, 2)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	var finished gjson.Result
	for _, line := range bytes.Split(bytes.TrimSpace(logs.Bytes()), []byte("\n")) {
		if entry := gjson.ParseBytes(line); entry.Get("msg").String() == "Run finished" {
			finished = entry
		}
	}
	require.True(t, finished.Exists(), "logs:\n%s", logs.String())
	assert.Equal(t, report.RunID, finished.Get("run_id").String())
	assert.Equal(t, int64(1), finished.Get("updated").Int())
	assert.Equal(t, int64(2), finished.Get("pool.cap").Int())
	assert.True(t, finished.Get("pool.running").Exists())
	assert.True(t, finished.Get("pool.free").Exists())
}

func TestNew_InvalidOptions(t *testing.T) {
	pool, err := worker.NewPool("test", worker.DefaultPoolConfig())
	require.NoError(t, err)
	defer pool.Release()

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"bad rule", func(o *Options) { o.Rule.Index = 5 }},
		{"empty pattern", func(o *Options) { o.Pattern = "" }},
		{"bad pattern", func(o *Options) { o.Pattern = "[" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			_, err := New(afero.NewMemMapFs(), opts, pool)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeConfigInvalid), "err = %v", err)
		})
	}

	_, err = New(afero.NewMemMapFs(), DefaultOptions(), nil)
	assert.Error(t, err)
}

func TestReport_WriteYAML(t *testing.T) {
	fs := newTestFS(t, map[string]string{
		"it.json": `{"footer":{"socials":{"it":["Facebook","Instagram","YouTube"]}}}`,
	})
	p := newTestPatcher(t, fs, nil, 1)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, report.WriteYAML(fs, "/report.yaml"))

	data, err := afero.ReadFile(fs, "/report.yaml")
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, report.RunID, decoded.RunID)
	assert.Equal(t, testDir, decoded.Dir)
	require.Len(t, decoded.Files, 1)
	assert.Equal(t, testDir+"/it.json", decoded.Files[0].File)
	assert.Equal(t, "YouTube", decoded.Files[0].Changes[0].Previous)
}

func TestReport_WriteYAMLFailure(t *testing.T) {
	report := &Report{RunID: "r"}
	err := report.WriteYAML(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/report.yaml")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeReportWriteFailed), "err = %v", err)
}
