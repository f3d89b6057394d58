package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/sign2me/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var envKeys = []string{
	"SIGN2ME_CONFIG",
	"SIGN2ME_ADDR",
	"SIGN2ME_GATEWAY_MODE",
	"SIGN2ME_POLL_INTERVAL",
	"SIGN2ME_FEEDBACK_COOLDOWN",
	"SIGN2ME_ALPHABET",
	"SIGN2ME_EXCLUDE_REPEAT",
	"SIGN2ME_CLASSIFIER_URL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.GatewayMode, convey.ShouldEqual, config.ModePush)
			convey.So(cfg.PollInterval, convey.ShouldEqual, time.Second)
			convey.So(cfg.FeedbackCooldown, convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.Alphabet, convey.ShouldEqual, "ABCDEFGHIKLMNOPQRSTUVWXY")
			convey.So(cfg.ClassifierURL, convey.ShouldEqual, "http://localhost:5050")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the database lives in the data dir", func() {
			convey.So(cfg.DBPath(), convey.ShouldEqual, filepath.Join(cfg.DataDir, "sign2me.db"))
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		cases := map[string]func(c *config.Config){
			"empty addr":        func(c *config.Config) { c.Addr = "" },
			"bad level":         func(c *config.Config) { c.LogLevel = "chatty" },
			"relative url":      func(c *config.Config) { c.ClassifierURL = "localhost" },
			"zero timeout":      func(c *config.Config) { c.ClassifierTimeout = 0 },
			"unknown mode":      func(c *config.Config) { c.GatewayMode = "stream" },
			"poll without tick": func(c *config.Config) { c.GatewayMode = config.ModePoll; c.PollInterval = 0 },
			"negative cooldown": func(c *config.Config) { c.FeedbackCooldown = -time.Second },
			"motion letter":     func(c *config.Config) { c.Alphabet = "ABZ" },
			"empty alphabet":    func(c *config.Config) { c.Alphabet = "" },
			"zero motion":       func(c *config.Config) { c.MotionThreshold = 0 },
		}

		for name, mutate := range cases {
			cfg := config.New()
			mutate(cfg)

			convey.Convey("Then "+name+" is rejected", func() {
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}

func TestConfig_Load(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		clearEnv(t)

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load("")

			convey.Convey("Then defaults are returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.GatewayMode, convey.ShouldEqual, config.ModePush)
				convey.So(cfg.FeedbackCooldown, convey.ShouldEqual, 10*time.Second)
			})
		})

		convey.Convey("When loading with environment variables", func() {
			t.Setenv("SIGN2ME_GATEWAY_MODE", "poll")
			t.Setenv("SIGN2ME_POLL_INTERVAL", "500ms")
			t.Setenv("SIGN2ME_FEEDBACK_COOLDOWN", "3s")
			t.Setenv("SIGN2ME_EXCLUDE_REPEAT", "true")

			cfg, err := config.Load("")

			convey.Convey("Then env overrides defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.GatewayMode, convey.ShouldEqual, config.ModePoll)
				convey.So(cfg.PollInterval, convey.ShouldEqual, 500*time.Millisecond)
				convey.So(cfg.FeedbackCooldown, convey.ShouldEqual, 3*time.Second)
				convey.So(cfg.ExcludeRepeat, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading a YAML file", func() {
			path := filepath.Join(t.TempDir(), "sign2me.yaml")
			content := "addr: \":9090\"\nalphabet: \"ABC\"\nclassifier_url: \"http://classifier:5050\"\n"
			convey.So(os.WriteFile(path, []byte(content), 0o644), convey.ShouldBeNil)

			cfg, err := config.Load(path)

			convey.Convey("Then file values override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Alphabet, convey.ShouldEqual, "ABC")
				convey.So(cfg.ClassifierURL, convey.ShouldEqual, "http://classifier:5050")
			})

			convey.Convey("Then env still wins over the file", func() {
				t.Setenv("SIGN2ME_ADDR", ":7070")
				cfg, err := config.Load(path)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
			})
		})

		convey.Convey("When the file is missing", func() {
			_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the alphabet contains a motion letter", func() {
			t.Setenv("SIGN2ME_ALPHABET", "ABJ")
			_, err := config.Load("")

			convey.Convey("Then startup fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
