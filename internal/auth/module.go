package auth

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/otpgate/internal/auth/guard"
	"github.com/shandysiswandi/otpgate/internal/auth/inbound"
	"github.com/shandysiswandi/otpgate/internal/auth/outbound/db"
	"github.com/shandysiswandi/otpgate/internal/auth/outbound/mq"
	"github.com/shandysiswandi/otpgate/internal/auth/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/kvstore"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
)

type Dependency struct {
	Ctx        context.Context            `validate:"required"`
	DBConn     *pgxpool.Pool              `validate:"required"`
	Store      kvstore.Store              `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	OID        uid.StringID               `validate:"required"`
	HMAC       hash.Hash                  `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	JWT        jwt.JWT                    `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	cfg := dep.Config

	issuer, err := guard.NewIssuer(dep.Store, cfg.GetInt("modules.auth.otp.length"), cfg.GetSecond("modules.auth.otp.expiry_seconds"))
	if err != nil {
		return err
	}

	limiter := guard.NewRateLimiter(dep.Store, map[guard.Dimension]guard.Rule{
		guard.DimensionEmail: {
			Limit:  cfg.GetInt64("modules.auth.rate_limit.email_limit"),
			Window: cfg.GetSecond("modules.auth.rate_limit.email_window_seconds"),
		},
		guard.DimensionAddr: {
			Limit:  cfg.GetInt64("modules.auth.rate_limit.ip_limit"),
			Window: cfg.GetSecond("modules.auth.rate_limit.ip_window_seconds"),
		},
	})

	lock := guard.NewLockout(dep.Store,
		cfg.GetInt64("modules.auth.lockout.failed_limit"),
		cfg.GetSecond("modules.auth.lockout.failed_window_seconds"),
	)

	uc := usecase.New(usecase.Dependency{
		RepoDB:        db.NewDB(dep.DBConn, dep.Instrument),
		RepoMessaging: mq.NewMessaging(dep.Messaging, dep.Instrument, dep.UUID, dep.Clock),
		Issuer:        issuer,
		Verifier:      guard.NewVerifier(dep.Store),
		RateLimiter:   limiter,
		Lockout:       lock,
		Validator:     dep.Validator,
		Config:        cfg,
		HMAC:          dep.HMAC,
		UID:           dep.UID,
		OID:           dep.OID,
		Clock:         dep.Clock,
		JWT:           dep.JWT,
		Instrument:    dep.Instrument,
		Goroutine:     dep.Goroutine,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
