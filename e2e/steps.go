// Package e2e drives the public HTTP surface end to end with godog. Each
// scenario gets a fresh in-memory node; step definitions live in per-feature
// packages under steps/.
package e2e

import (
	"github.com/cucumber/godog"

	"agora/e2e/steps/moderation"
)

// RegisterSteps registers all step definitions from the step packages.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	moderation.RegisterSteps(ctx, tc)
}
