package backend

import (
	"fmt"
	"log/slog"

	"github.com/mulgadc/ec2power/ec2power/config"
	"github.com/mulgadc/ec2power/ec2power/lifecycle"
	lifecycle_ec2 "github.com/mulgadc/ec2power/ec2power/lifecycle/ec2"
	lifecycle_nats "github.com/mulgadc/ec2power/ec2power/lifecycle/nats"
)

// NewController builds the lifecycle API client for cfg.Backend. The
// returned close func releases any connection and is never nil.
func NewController(cfg *config.Config) (lifecycle.Controller, func(), error) {
	switch cfg.Backend {
	case config.BackendEC2, "":
		client, err := lifecycle_ec2.NewClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		slog.Debug("NewController: using EC2 API", "region", cfg.Region, "endpoint", cfg.Endpoint)
		return lifecycle_ec2.New(client), func() {}, nil

	case config.BackendNATS:
		nc, err := lifecycle_nats.Connect(cfg.NATS)
		if err != nil {
			return nil, nil, err
		}
		slog.Debug("NewController: using Hive NATS", "host", cfg.NATS.Host)
		return lifecycle_nats.New(nc, cfg.NATS.Timeout), nc.Close, nil
	}

	return nil, nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
}
