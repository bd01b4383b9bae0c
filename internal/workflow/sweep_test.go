package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.temporal.io/sdk/testsuite"

	"github.com/familyhub/subscription-api/internal/activity"
)

// registerActivities registers activity structs with the test workflow
// environment so that parameter and return types can be deserialized correctly
// by the Temporal test framework. All activities are mocked via OnActivity.
func registerActivities(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterActivity(&activity.Sweep{})
}

// ---------- ExpireSubscriptionsWorkflow ----------

type ExpireSubscriptionsWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *ExpireSubscriptionsWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerActivities(s.env)
}

func (s *ExpireSubscriptionsWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func (s *ExpireSubscriptionsWorkflowTestSuite) TestSweepSucceeds() {
	s.env.OnActivity("SweepExpiredSubscriptions", mock.Anything).Return(42, nil)

	s.env.ExecuteWorkflow(ExpireSubscriptionsWorkflow)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *ExpireSubscriptionsWorkflowTestSuite) TestNothingToExpire() {
	s.env.OnActivity("SweepExpiredSubscriptions", mock.Anything).Return(0, nil)

	s.env.ExecuteWorkflow(ExpireSubscriptionsWorkflow)
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *ExpireSubscriptionsWorkflowTestSuite) TestSweepFailurePropagates() {
	s.env.OnActivity("SweepExpiredSubscriptions", mock.Anything).
		Return(0, errors.New("database unavailable"))

	s.env.ExecuteWorkflow(ExpireSubscriptionsWorkflow)
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

// ---------- CheckUserSubscriptionWorkflow ----------

type CheckUserSubscriptionWorkflowTestSuite struct {
	suite.Suite
	testsuite.WorkflowTestSuite
	env *testsuite.TestWorkflowEnvironment
}

func (s *CheckUserSubscriptionWorkflowTestSuite) SetupTest() {
	s.env = s.NewTestWorkflowEnvironment()
	registerActivities(s.env)
}

func (s *CheckUserSubscriptionWorkflowTestSuite) AfterTest(suiteName, testName string) {
	s.env.AssertExpectations(s.T())
}

func (s *CheckUserSubscriptionWorkflowTestSuite) TestChecksGivenUser() {
	s.env.OnActivity("SweepUserSubscription", mock.Anything, "u1").Return(nil)

	s.env.ExecuteWorkflow(CheckUserSubscriptionWorkflow, "u1")
	s.True(s.env.IsWorkflowCompleted())
	s.NoError(s.env.GetWorkflowError())
}

func (s *CheckUserSubscriptionWorkflowTestSuite) TestFailurePropagates() {
	s.env.OnActivity("SweepUserSubscription", mock.Anything, "u1").
		Return(errors.New("database unavailable"))

	s.env.ExecuteWorkflow(CheckUserSubscriptionWorkflow, "u1")
	s.True(s.env.IsWorkflowCompleted())
	s.Error(s.env.GetWorkflowError())
}

// ---------- Run all suites ----------

func TestExpireSubscriptionsWorkflow(t *testing.T) {
	suite.Run(t, new(ExpireSubscriptionsWorkflowTestSuite))
}

func TestCheckUserSubscriptionWorkflow(t *testing.T) {
	suite.Run(t, new(CheckUserSubscriptionWorkflowTestSuite))
}
