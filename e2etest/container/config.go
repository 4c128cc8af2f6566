//go:build e2e

package container

import "github.com/babylonlabs-io/tip-ledger/pkg"

// ImageConfig contains all images and their respective tags
// needed for running e2e tests.
type ImageConfig struct {
	MongoRepository    string
	MongoVersion       string
	RabbitMQRepository string
	RabbitMQVersion    string
}

const (
	dockerMongoRepository    = "mongo"
	dockerMongoVersionTag    = "7.0.5"
	dockerRabbitMQRepository = "rabbitmq"
	dockerRabbitMQVersionTag = "3.13-alpine"
)

// NewImageConfig returns ImageConfig needed for running e2e test. Tags can
// be overridden with E2E_MONGO_VERSION and E2E_RABBITMQ_VERSION.
func NewImageConfig() ImageConfig {
	return ImageConfig{
		MongoRepository:    dockerMongoRepository,
		MongoVersion:       pkg.Getenv("E2E_MONGO_VERSION", dockerMongoVersionTag),
		RabbitMQRepository: dockerRabbitMQRepository,
		RabbitMQVersion:    pkg.Getenv("E2E_RABBITMQ_VERSION", dockerRabbitMQVersionTag),
	}
}
