package app

import (
	"context"
	"os"
	"path"
	"reflect"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/glosspoint/glosspoint/internal/domain"
	"github.com/glosspoint/glosspoint/pkg/backup"
	"github.com/glosspoint/glosspoint/pkg/metrics"
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
		go a.SchedProcessMonitorTask()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@daily", func() {
		a.SchedClearOprLogs()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	if a.appConfig.Backup.Enable {
		_, err = a.sched.AddFunc("@daily", func() {
			a.SchedBackupTask()
		})
		if err != nil {
			zap.S().Errorf("init job error %s", err.Error())
		}
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

// SchedProcessMonitorTask app process monitor
func (a *Application) SchedProcessMonitorTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return
	}

	cpuuse, err := p.CPUPercent()
	if err == nil {
		metrics.SetGauge("glosspoint_cpuuse", int64(cpuuse*100))
	}

	meminfo, err := p.MemoryInfo()
	if err == nil {
		metrics.SetGauge("glosspoint_memuse", int64(meminfo.RSS/1024/1024))
	}
}

// SchedClearOprLogs prunes audit rows older than the configured retention.
func (a *Application) SchedClearOprLogs() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	idays := a.settings.GetInt64("oprlog", "KeepDays")
	if idays == 0 {
		idays = 365
	}
	cutoff := time.Now().Add(-time.Hour * 24 * time.Duration(idays))

	if a.gormDB != nil {
		a.gormDB.Where("opt_time < ?", cutoff).Delete(&domain.SysOprLog{})
		return
	}
	if a.local == nil {
		return
	}
	ctx := context.Background()
	for _, raw := range a.local.Snapshot(domain.SysOprLog{}.TableName()) {
		if row, ok := raw.(domain.SysOprLog); ok && row.OptTime.Before(cutoff) {
			_ = a.gw.Delete(ctx, row.TableName(), row.ID)
		}
	}
}

// SchedBackupTask dumps every table and ships the file when sftp is
// configured, then drops expired local dumps.
func (a *Application) SchedBackupTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	dir := a.appConfig.GetBackupDir()
	if err := backup.Run(a.backupSource(), a.appConfig.Backup, dir); err != nil {
		zap.L().Error("scheduled backup failed", zap.Error(err))
	}
	a.pruneBackups(dir)
}

func (a *Application) pruneBackups(dir string) {
	keep := a.settings.GetInt64("backup", "KeepDays")
	if keep == 0 {
		keep = 30
	}
	cutoff := time.Now().Add(-time.Hour * 24 * time.Duration(keep))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "glosspoint-backup-") {
			continue
		}
		info, err := e.Info()
		if err == nil && info.ModTime().Before(cutoff) {
			_ = os.Remove(path.Join(dir, e.Name()))
		}
	}
}

func (a *Application) backupSource() backup.Source {
	if a.local != nil {
		return a.local
	}
	return &gormDumpSource{db: a.gormDB}
}

// gormDumpSource adapts the sql backend to the backup source interface.
type gormDumpSource struct {
	db *gorm.DB
}

func (s *gormDumpSource) TableNames() []string {
	type namer interface{ TableName() string }
	names := make([]string, 0, len(domain.Tables))
	for _, model := range domain.Tables {
		if n, ok := model.(namer); ok {
			names = append(names, n.TableName())
		}
	}
	return names
}

func (s *gormDumpSource) DumpTable(table string) (interface{}, error) {
	type namer interface{ TableName() string }
	for _, model := range domain.Tables {
		n, ok := model.(namer)
		if !ok || n.TableName() != table {
			continue
		}
		t := reflect.TypeOf(model)
		for t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		slice := reflect.New(reflect.SliceOf(t))
		if err := s.db.Table(table).Order("id desc").Find(slice.Interface()).Error; err != nil {
			return nil, err
		}
		return slice.Elem().Interface(), nil
	}
	return nil, nil
}
