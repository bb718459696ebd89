package config_test

import (
	"bytes"
	"errors"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/masterofmagic999/mugic/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.StoreDriver, convey.ShouldEqual, "memory")
			convey.So(cfg.LLMProvider, convey.ShouldEqual, "none")
			convey.So(cfg.AlignmentWindow(), convey.ShouldEqual, 0.5)
			convey.So(cfg.LLMTimeout(), convey.ShouldEqual, 8*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one bad key each", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":           func(c *config.Config) { c.Addr = " " },
			"unknown level":        func(c *config.Config) { c.LogLevel = "trace" },
			"unknown format":       func(c *config.Config) { c.LogFormat = "xml" },
			"zero queue":           func(c *config.Config) { c.QueueSize = 0 },
			"zero workers":         func(c *config.Config) { c.WorkerCount = 0 },
			"negative dedupe":      func(c *config.Config) { c.DedupeSize = -1 },
			"zero window":          func(c *config.Config) { c.AlignmentWindowMS = 0 },
			"unknown driver":       func(c *config.Config) { c.StoreDriver = "mongo" },
			"postgres without dsn": func(c *config.Config) { c.StoreDriver = "postgres" },
			"unknown provider":     func(c *config.Config) { c.LLMProvider = "claude" },
			"zero llm timeout":     func(c *config.Config) { c.LLMTimeoutMS = 0 },
		}

		for name, mutate := range cases {
			convey.Convey("When validating a config with "+name, func() {
				cfg := config.New()
				mutate(cfg)
				err := cfg.Validate()

				convey.Convey("Then it is rejected as invalid", func() {
					convey.So(err, convey.ShouldNotBeNil)
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}
	})
}

func TestConfig_WriteYAML(t *testing.T) {
	convey.Convey("Given a config holding secrets", t, func() {
		cfg := config.New()
		cfg.OpenAIAPIKey = "sk-secret"
		cfg.SentryDSN = "https://key@sentry.example/1"

		var buf bytes.Buffer
		err := cfg.WriteYAML(&buf)

		convey.Convey("Then the dump redacts them and keeps the rest", func() {
			convey.So(err, convey.ShouldBeNil)
			out := buf.String()
			convey.So(out, convey.ShouldNotContainSubstring, "sk-secret")
			convey.So(out, convey.ShouldNotContainSubstring, "sentry.example")
			convey.So(out, convey.ShouldContainSubstring, "openai_api_key: REDACTED")
			convey.So(out, convey.ShouldContainSubstring, "9080")
			convey.So(strings.Contains(out, "gemini_api_key: REDACTED"), convey.ShouldBeFalse)
			convey.So(cfg.OpenAIAPIKey, convey.ShouldEqual, "sk-secret")
		})
	})
}
