package cron

import (
	"context"
	"testing"

	cronv3 "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"k8s.io/client-go/kubernetes"

	cron_config "github.com/bosatsu/aws-twilio-fax/internal/cron/config"
	"github.com/bosatsu/aws-twilio-fax/internal/logger"
)

type mockKubernetesInterface struct {
	kubernetes.Interface
	mock.Mock
}

type fakeAllowList struct {
	refreshes int
}

func (f *fakeAllowList) PhoneByEmail(email string) (string, error) { return "", nil }
func (f *fakeAllowList) EmailByPhone(phone string) (string, error) { return "", nil }
func (f *fakeAllowList) Refresh(ctx context.Context) error {
	f.refreshes++
	return nil
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func TestNewCronManager(t *testing.T) {
	// Arrange
	log := getLogger()
	k8s := &mockKubernetesInterface{}
	allowList := &fakeAllowList{}

	// Act
	cm := NewCronManager(log, k8s, allowList)

	// Assert
	assert.NotNil(t, cm)
	assert.Equal(t, log, cm.log)
	assert.Equal(t, k8s, cm.k8s)
	assert.NotNil(t, cm.jobIDs)
}

func TestCronManager_RegisterJobs(t *testing.T) {
	// Arrange
	log := getLogger()
	cm := NewCronManager(log, &mockKubernetesInterface{}, &fakeAllowList{})

	mockCron := cronv3.New(cronv3.WithSeconds())

	var cronConfig cron_config.Config
	cronConfig.CronScheduleHeartbeat = "0 * * * * *"
	cronConfig.CronScheduleAllowListRefresh = "0 */5 * * * *"

	// Act - register jobs manually
	heartbeatId, err := mockCron.AddFunc(cronConfig.CronScheduleHeartbeat, func() {})
	assert.NoError(t, err)
	cm.jobIDs["heartbeat"] = heartbeatId

	refreshId, err := mockCron.AddFunc(cronConfig.CronScheduleAllowListRefresh, func() {})
	assert.NoError(t, err)
	cm.jobIDs["allow_list_refresh"] = refreshId

	cm.cron = mockCron

	// Assert
	assert.NotNil(t, cm.cron)
	assert.Equal(t, 2, len(cm.jobIDs))
}

func TestCronManager_Stop(t *testing.T) {
	// Arrange
	log := getLogger()
	cm := NewCronManager(log, &mockKubernetesInterface{}, &fakeAllowList{})

	mockCron := cronv3.New()
	mockCron.Start()
	cm.cron = mockCron

	// Act
	cm.Stop()

	// Assert
	select {
	case <-cm.stopCh:
		// Channel is closed as expected
	default:
		t.Error("Stop channel was not closed")
	}
}

func TestCronManager_RefreshAllowList(t *testing.T) {
	// Arrange
	allowList := &fakeAllowList{}
	cm := NewCronManager(getLogger(), nil, allowList)

	// Act
	cm.refreshAllowList()

	// Assert
	assert.Equal(t, 1, allowList.refreshes)
}
