package messaging

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DriverNSQ    = "nsq"
	DriverNATS   = "nats"
	DriverKafka  = "kafka"
	DriverMemory = "memory"
)

var ErrUnknownDriver = errors.New("messaging: unknown driver")

// FactoryOptions holds the settings of every backend; only the selected
// driver's section is read.
type FactoryOptions struct {
	NSQ   NSQConfig
	Kafka KafkaConfig
	NATS  NATSConfig
}

var drivers = map[string]func(FactoryOptions) (Messaging, error){
	DriverNSQ:    func(o FactoryOptions) (Messaging, error) { return NewNSQ(o.NSQ) },
	DriverNATS:   func(o FactoryOptions) (Messaging, error) { return NewNATS(o.NATS) },
	DriverKafka:  func(o FactoryOptions) (Messaging, error) { return NewKafka(o.Kafka) },
	DriverMemory: func(FactoryOptions) (Messaging, error) { return NewMemory(), nil },
}

// NewFromDriver builds the backend named by driver. An empty name selects
// the in-process broker.
func NewFromDriver(driver string, opts FactoryOptions) (Messaging, error) {
	name := strings.ToLower(strings.TrimSpace(driver))
	if name == "" {
		name = DriverMemory
	}

	build, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	return build(opts)
}
