// Package gcmgr wires the configuration, logger, token registry, transport,
// dispatcher and services into one Manager. It is what the CLI builds on
// startup; library users can build one the same way.
package gcmgr

import (
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/serverlessresearch/gcrest/pkg/auth"
	"github.com/serverlessresearch/gcrest/pkg/dispatch"
	"github.com/serverlessresearch/gcrest/pkg/firestore"
	"github.com/serverlessresearch/gcrest/pkg/request"
	"github.com/serverlessresearch/gcrest/pkg/storage"
	"github.com/serverlessresearch/gcrest/pkg/transport"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Logger is what every component of the manager logs through.
type Logger = logrus.FieldLogger

type Manager struct {
	Registry   *auth.Registry
	App        auth.App
	Transport  *transport.Client
	Dispatcher *dispatch.Dispatcher
	Storage    *storage.Service
	Firestore  *firestore.Service
	Logger     Logger
	Cfg        *viper.Viper
}

// NewManager builds a manager from userCfg. Recognized options:
//
//	"config-file"           string, overrides the ./configs/gcrest.* search
//	"logger"                Logger, defaults to logrus.New() at log.level
//	"allow-missing-config"  bool, run on defaults and environment alone
//	"firmware"              transport.FirmwareSink for OTA downloads
func NewManager(userCfg map[string]interface{}) (*Manager, error) {
	var err error
	mgr := &Manager{}

	allowMissing := false
	if raw, ok := userCfg["allow-missing-config"]; ok {
		if allowMissing, ok = raw.(bool); !ok {
			return nil, errors.New("option 'allow-missing-config' must be of type bool")
		}
	}

	if cfgPathRaw, ok := userCfg["config-file"]; ok {
		if cfgPath, ok := cfgPathRaw.(string); ok {
			err = mgr.initConfig(&cfgPath, allowMissing)
		} else {
			return nil, errors.New("option 'config-file' must be of type string")
		}
	} else {
		err = mgr.initConfig(nil, allowMissing)
	}
	if err != nil {
		return nil, err
	}

	if loggerRaw, ok := userCfg["logger"]; ok {
		if logger, ok := loggerRaw.(Logger); ok {
			mgr.Logger = logger
		} else {
			return nil, errors.New("option 'logger' must satisfy gcmgr.Logger")
		}
	} else {
		logger := logrus.New()
		level, err := logrus.ParseLevel(mgr.Cfg.GetString("log.level"))
		if err != nil {
			return nil, errors.Wrap(err, "Invalid log.level")
		}
		logger.SetLevel(level)
		mgr.Logger = logger
	}

	var firmware transport.FirmwareSink
	if raw, ok := userCfg["firmware"]; ok {
		if firmware, ok = raw.(transport.FirmwareSink); !ok {
			return nil, errors.New("option 'firmware' must be a transport.FirmwareSink")
		}
	} else if path := mgr.Cfg.GetString("ota.path"); path != "" {
		firmware = fileFirmware(path)
	}

	if err = mgr.validate(); err != nil {
		return nil, err
	}
	mgr.initServices(firmware)
	return mgr, nil
}

func (self *Manager) Destroy() {
	if err := self.Transport.Close(); err != nil {
		self.Logger.Warnf("Closing transport: %v", err)
	}
}

// Parent is the firestore parent for the configured project and database.
func (self *Manager) Parent() request.Parent {
	return request.NewParent(self.Cfg.GetString("app.project-id"), self.Cfg.GetString("firestore.database"))
}

func (self *Manager) initConfig(cfgPath *string, allowMissing bool) error {
	// This is a private viper context just for gcrest (so as not to conflict
	// with the importer's usage).
	self.Cfg = viper.New()

	self.Cfg.SetDefault("transport.capacity", 8)
	self.Cfg.SetDefault("transport.timeout", 30*time.Second)
	self.Cfg.SetDefault("transport.max-retries", 3)
	self.Cfg.SetDefault("transport.rate-limit", 10.0)
	self.Cfg.SetDefault("transport.rate-burst", 5)
	self.Cfg.SetDefault("transport.user-agent", "gcrest/1.0")
	self.Cfg.SetDefault("firestore.database", request.DefaultDatabase)
	self.Cfg.SetDefault("log.level", "info")
	self.Cfg.SetDefault("pump.interval", 5*time.Millisecond)

	// Order of precedence: ENV, gcrest.yaml
	self.Cfg.BindEnv("app.access-token", "GCREST_ACCESS_TOKEN")
	self.Cfg.BindEnv("app.project-id", "GOOGLE_CLOUD_PROJECT")

	if cfgPath != nil {
		path, err := homedir.Expand(*cfgPath)
		if err != nil {
			return errors.Wrap(err, "Failed to expand config path "+*cfgPath)
		}
		self.Cfg.SetConfigFile(path)
	} else {
		// default search path for config is ./configs/gcrest.* (* can be json, yaml, etc)
		self.Cfg.AddConfigPath("./configs")
		self.Cfg.SetConfigName("gcrest")
	}

	// If a config file is found, read it in.
	if err := self.Cfg.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if allowMissing && (notFound || os.IsNotExist(err)) {
			return nil
		}
		return errors.Wrap(err, "Failed to load config")
	}
	return nil
}

// validate reports every bad setting at once.
func (self *Manager) validate() error {
	var result *multierror.Error
	cfg := self.Cfg
	if cfg.GetInt("transport.capacity") <= 0 {
		result = multierror.Append(result, errors.New("transport.capacity must be positive"))
	}
	if cfg.GetDuration("transport.timeout") <= 0 {
		result = multierror.Append(result, errors.New("transport.timeout must be positive"))
	}
	if cfg.GetInt("transport.max-retries") < 0 {
		result = multierror.Append(result, errors.New("transport.max-retries must not be negative"))
	}
	if cfg.GetFloat64("transport.rate-limit") <= 0 {
		result = multierror.Append(result, errors.New("transport.rate-limit must be positive"))
	}
	if cfg.GetInt("transport.rate-burst") <= 0 {
		result = multierror.Append(result, errors.New("transport.rate-burst must be positive"))
	}
	if cfg.GetDuration("pump.interval") <= 0 {
		result = multierror.Append(result, errors.New("pump.interval must be positive"))
	}
	for host, base := range cfg.GetStringMapString("transport.endpoints") {
		u, err := url.Parse(base)
		if err != nil || u.Scheme == "" || u.Host == "" {
			result = multierror.Append(result, errors.Errorf("transport.endpoints.%s: %q is not an absolute URL", host, base))
		}
	}
	return result.ErrorOrNil()
}

func (self *Manager) initServices(firmware transport.FirmwareSink) {
	cfg := self.Cfg

	self.Transport = transport.New(transport.Config{
		Capacity:   cfg.GetInt("transport.capacity"),
		Timeout:    cfg.GetDuration("transport.timeout"),
		MaxRetries: cfg.GetInt("transport.max-retries"),
		RateLimit:  cfg.GetFloat64("transport.rate-limit"),
		RateBurst:  cfg.GetInt("transport.rate-burst"),
		UserAgent:  cfg.GetString("transport.user-agent"),
		Endpoints:  cfg.GetStringMapString("transport.endpoints"),
		Firmware:   firmware,
		Logger:     self.Logger,
	})

	self.Registry = auth.NewRegistry()
	self.App = auth.NewApp()
	if tok := cfg.GetString("app.access-token"); tok != "" {
		self.Registry.Register(self.App, auth.ParseAccessToken(tok, cfg.GetString("app.project-id")))
	}

	self.Dispatcher = dispatch.New(self.Transport, self.Registry,
		dispatch.WithLogger(self.Logger),
		dispatch.WithPumpInterval(cfg.GetDuration("pump.interval")))

	self.Storage = storage.NewService(self.Dispatcher)
	self.Storage.SetApp(self.App)
	self.Firestore = firestore.NewService(self.Dispatcher)
	self.Firestore.SetApp(self.App)
}

// fileFirmware writes OTA images to path, creating its directory.
func fileFirmware(path string) transport.FirmwareSink {
	return func(int64) (io.WriteCloser, error) {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, errors.Wrap(err, "Failed to expand firmware path "+path)
		}
		if err := os.MkdirAll(filepath.Dir(expanded), 0775); err != nil {
			return nil, errors.Wrap(err, "Failed to create firmware directory")
		}
		return os.Create(expanded)
	}
}
