// package services implements the identity and job queue adapters
//
// Google, RabbitMQ
package services

import "github.com/desertthunder/chordpaper/internal/models"

var (
	_ models.IdentityVerifier = (*GoogleVerifier)(nil)
	_ models.JobPublisher     = (*AMQPPublisher)(nil)
	_ models.JobPublisher     = (*LogPublisher)(nil)
)

// StartJobType is the AMQP message type of a split job.
const StartJobType = "start_job"
