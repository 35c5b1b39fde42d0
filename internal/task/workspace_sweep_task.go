package task

import (
	"log"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSpec 每 5 分钟巡检一次
const DefaultSweepSpec = "0 */5 * * * *"

// WorkspaceSweeper 可被回收的工作区注册表
type WorkspaceSweeper interface {
	Sweep() int
	Count() int
}

// WorkspaceSweepTask 空闲工作区回收任务
type WorkspaceSweepTask struct {
	registry WorkspaceSweeper
	spec     string
	Cron     *cron.Cron
}

func NewWorkspaceSweepTask(registry WorkspaceSweeper, spec string) *WorkspaceSweepTask {
	if spec == "" {
		spec = DefaultSweepSpec
	}
	return &WorkspaceSweepTask{
		registry: registry,
		spec:     spec,
		Cron:     cron.New(cron.WithSeconds()), // 支持秒级控制
	}
}

// Start 注册定时任务并启动
func (t *WorkspaceSweepTask) Start() error {
	if _, err := t.Cron.AddFunc(t.spec, t.Execute); err != nil {
		return err
	}

	t.Cron.Start()
	log.Printf("[WorkspaceSweep] 回收任务已启动 (%s)", t.spec)
	return nil
}

// Stop 停止调度并等待正在执行的巡检结束
func (t *WorkspaceSweepTask) Stop() {
	<-t.Cron.Stop().Done()
	log.Println("[WorkspaceSweep] 回收任务已停止")
}

// Execute 执行一次回收
func (t *WorkspaceSweepTask) Execute() {
	removed := t.registry.Sweep()
	if removed > 0 {
		log.Printf("[WorkspaceSweep] 回收 %d 个空闲工作区，剩余 %d 个", removed, t.registry.Count())
	}
}
