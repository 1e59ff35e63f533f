package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/focusengine/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

const seasonCSV = `player_name,sg_ott,sg_app,sg_arg,sg_putt
Alpha,0.1,1,0.5,0.3
Bravo,0.2,-1,-0.5,-0.3
Charlie,0.1,1,0.5,0.3
Delta,0.2,-1,-0.5,-0.3
`

func writeZip(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("player_season_2024.csv")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(seasonCSV)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "export.zip")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func memoryEnv(t *testing.T) {
	t.Helper()
	dotenv := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(dotenv, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvDotenvFile, dotenv)
	t.Setenv(config.EnvConfigFile, "")
	t.Setenv("FOCUS_DB_DRIVER", "memory")
	t.Setenv("FOCUS_LOG_FORMAT", "json")
}

func TestBatchRun(t *testing.T) {
	convey.Convey("Given the batch tool over a memory store", t, func() {
		memoryEnv(t)
		ctx := context.Background()
		var stdout, stderr bytes.Buffer

		convey.Convey("When ingesting and recalibrating an archive", func() {
			code := run(ctx, []string{"-archive", writeZip(t), "-recalibrate", "-min-players", "4"}, &stdout, &stderr)

			convey.Convey("Then a successful report is printed", func() {
				convey.So(code, convey.ShouldEqual, exitOK)

				var rep map[string]any
				convey.So(json.Unmarshal(stdout.Bytes(), &rep), convey.ShouldBeNil)
				convey.So(rep["success"], convey.ShouldEqual, true)
				convey.So(rep["ingest"].(map[string]any)["filesProcessed"], convey.ShouldResemble, []any{"player_season_2024.csv"})
				convey.So(rep["weights"].(map[string]any)["populationSize"], convey.ShouldEqual, float64(4))
			})
		})

		convey.Convey("When recalibrating without data", func() {
			code := run(ctx, []string{"-recalibrate"}, &stdout, &stderr)

			convey.Convey("Then the report records the failure and the exit code is non-zero", func() {
				convey.So(code, convey.ShouldEqual, exitFailed)
				convey.So(stdout.String(), convey.ShouldContainSubstring, "insufficient data")
			})
		})

		convey.Convey("When the report goes to a file", func() {
			out := filepath.Join(t.TempDir(), "report.json")
			code := run(ctx, []string{"-archive", writeZip(t), "-output", out}, &stdout, &stderr)

			convey.So(code, convey.ShouldEqual, exitOK)
			convey.So(stdout.Len(), convey.ShouldEqual, 0)
			data, err := os.ReadFile(out)
			convey.So(err, convey.ShouldBeNil)
			convey.So(string(data), convey.ShouldContainSubstring, `"sourceVersion"`)
		})

		convey.Convey("When the flags are wrong", func() {
			convey.So(run(ctx, nil, &stdout, &stderr), convey.ShouldEqual, exitUsage)
			convey.So(run(ctx, []string{"-bogus"}, &stdout, &stderr), convey.ShouldEqual, exitUsage)
			convey.So(run(ctx, []string{"-help"}, &stdout, &stderr), convey.ShouldEqual, exitOK)
		})

		convey.Convey("When the archive does not exist", func() {
			code := run(ctx, []string{"-archive", filepath.Join(t.TempDir(), "nope.zip")}, &stdout, &stderr)
			convey.So(code, convey.ShouldEqual, exitFailed)
		})
	})
}
