package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Approved sender list refresh, every five minutes
	CronScheduleAllowListRefresh string `env:"CRON_SCHEDULE_ALLOW_LIST_REFRESH" envDefault:"0 */5 * * * *"`
}
