package config

import (
	"errors"
	"fmt"
	"net"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"nutricare/internal/reminder"
	logx "nutricare/pkg/logx"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// cronParser accepts the standard five-field form and descriptors (@daily).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("duration", validateDuration)
		_ = v.RegisterValidation("cronspec", validateCronSpec)
		_ = v.RegisterValidation("goal", validateGoal)
		_ = v.RegisterValidation("loglevel", validateLogLevel)
		validate = v
	})
	return validate
}

func validateDuration(fl validator.FieldLevel) bool {
	d, err := time.ParseDuration(strings.TrimSpace(fl.Field().String()))
	return err == nil && d >= 0
}

func validateCronSpec(fl validator.FieldLevel) bool {
	_, err := cronParser.Parse(strings.TrimSpace(fl.Field().String()))
	return err == nil
}

func validateGoal(fl validator.FieldLevel) bool {
	_, err := reminder.ParseGoal(fl.Field().String())
	return err == nil
}

func validateLogLevel(fl validator.FieldLevel) bool {
	_, ok := logx.ParseLevel(fl.Field().String())
	return ok
}

// Validate checks struct rules and the cross-field constraints the tags
// cannot express. The returned error lists every violation.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var problems []string
	if err := structValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}

	if strings.EqualFold(strings.TrimSpace(cfg.Gateway.Driver), "telegram") {
		if strings.TrimSpace(cfg.Gateway.Telegram.Token) == "" {
			problems = append(problems, "gateway.telegram.token: required when gateway.driver is telegram")
		}
		if cfg.Gateway.Telegram.ChatID == 0 {
			problems = append(problems, "gateway.telegram.chat_id: required when gateway.driver is telegram")
		}
	}
	if cfg.Debug.Enabled {
		addr := strings.TrimSpace(cfg.Debug.Addr)
		if addr == "" {
			addr = DefaultDebugAddr
		}
		if !cfg.Debug.AllowInsecure && strings.TrimSpace(cfg.Debug.Token) == "" && !isLoopbackAddr(addr) {
			problems = append(problems, "debug: binding to non-loopback addr requires token or allow_insecure=true")
		}
	}
	if _, err := ReminderCatalog(cfg); err != nil {
		problems = append(problems, "reminders: "+err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	path := fe.Namespace()
	if i := strings.IndexByte(path, '.'); i >= 0 {
		path = path[i+1:]
	}
	switch fe.Tag() {
	case "duration":
		return fmt.Sprintf("%s: invalid duration %q", path, fe.Value())
	case "cronspec":
		return fmt.Sprintf("%s: invalid cron spec %q", path, fe.Value())
	case "goal":
		return fmt.Sprintf("%s: unknown goal %q", path, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s]", path, fe.Param())
	case "required_if":
		return fmt.Sprintf("%s: required when %s", path, fe.Param())
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%s: failed %s=%s", path, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s: failed %s", path, fe.Tag())
}

func isLoopbackAddr(addr string) bool {
	// addr is expected in host:port (host may be empty).
	h, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	h = strings.TrimSpace(h)
	if h == "" {
		// empty host means all interfaces
		return false
	}
	if strings.EqualFold(h, "localhost") {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}
