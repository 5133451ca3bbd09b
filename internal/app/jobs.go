package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"go.uber.org/zap"

	"github.com/mgcaisse/caisse/internal/domain"
	"github.com/mgcaisse/caisse/pkg/metrics"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, _ := time.LoadLocation(a.appConfig.System.Location)
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	var err error
	_, err = a.sched.AddFunc("@every 30s", func() {
		go a.SchedSystemMonitorTask()
		go a.SchedRegisterMonitorTask()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@daily", func() {
		a.SchedClearSyncedEntries()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	a.sched.Start()
}

// SchedSystemMonitorTask system monitor
func (a *Application) SchedSystemMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	_cpuuse, err := cpu.Percent(0, false)
	if err == nil && len(_cpuuse) > 0 {
		metrics.SetGauge("system_cpuuse", int64(_cpuuse[0]*100))
	}

	_meminfo, err := mem.VirtualMemory()
	if err == nil {
		metrics.SetGauge("system_memuse", int64(_meminfo.Used/1024/1024))
	}
}

// SchedRegisterMonitorTask records the register's own health figures: queue
// depth and cache hit ratio feed the back-office dashboard.
func (a *Application) SchedRegisterMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	pending, err := a.store.GetSyncQueue(context.Background())
	if err == nil {
		metrics.SetGauge("sync_queue_pending", int64(len(pending)))
	}

	if a.gateway != nil {
		hits, misses := a.gateway.Stats()
		metrics.SetGauge("gateway_cache_hits", hits)
		metrics.SetGauge("gateway_cache_misses", misses)
	}
}

// SchedClearSyncedEntries trims replay records that were delivered long ago.
// Pending entries are never touched.
func (a *Application) SchedClearSyncedEntries() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	const keepDays = 90
	a.gormDB.
		Where("status = ? AND updated_at < ?", domain.SyncSynced,
			time.Now().Add(-time.Hour*24*keepDays)).
		Delete(&domain.SyncQueueEntry{})
}
