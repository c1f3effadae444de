package coordinator

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/taskrouter/router"
	"github.com/BaSui01/taskrouter/types"
)

// DirectPhase 没有任何阶段可分配时退化出的单 Worker 阶段
const DirectPhase = "direct"

// PhaseDefinition 领域中的一个阶段：名称 + 所需能力集合
type PhaseDefinition struct {
	Name                 string   `json:"name" yaml:"name"`
	RequiredCapabilities []string `json:"required_capabilities" yaml:"required_capabilities"`
	// MaxAssignments 为 0 时使用 Planner 的默认上限
	MaxAssignments int `json:"max_assignments,omitempty" yaml:"max_assignments"`
}

// DomainDefinition 领域的有序阶段
type DomainDefinition struct {
	Name   string            `json:"name" yaml:"name"`
	Phases []PhaseDefinition `json:"phases" yaml:"phases"`
}

// DefaultDomains 返回内置领域的阶段定义
func DefaultDomains() []DomainDefinition {
	return []DomainDefinition{
		{Name: DomainTravel, Phases: []PhaseDefinition{
			{Name: "research", RequiredCapabilities: []string{"research", "travel"}, MaxAssignments: 1},
			{Name: "planning", RequiredCapabilities: []string{"travel", "budget", "cultural"}},
			{Name: "review", RequiredCapabilities: []string{"complex_reasoning", "general"}, MaxAssignments: 1},
		}},
		{Name: DomainDevelopment, Phases: []PhaseDefinition{
			{Name: "design", RequiredCapabilities: []string{"complex_reasoning"}, MaxAssignments: 1},
			{Name: "implementation", RequiredCapabilities: []string{"code"}, MaxAssignments: 2},
			{Name: "review", RequiredCapabilities: []string{"code", "general"}, MaxAssignments: 1},
		}},
		{Name: DomainLearning, Phases: []PhaseDefinition{
			{Name: "research", RequiredCapabilities: []string{"research", "learning"}, MaxAssignments: 1},
			{Name: "explanation", RequiredCapabilities: []string{"learning", "general"}, MaxAssignments: 1},
		}},
		{Name: DomainGeneral, Phases: []PhaseDefinition{
			{Name: "respond", RequiredCapabilities: []string{"general"}, MaxAssignments: 1},
		}},
	}
}

// AgentAssignment 一个 Worker 在某阶段的任务
type AgentAssignment struct {
	AgentID string     `json:"agent_id"`
	Task    types.Task `json:"task"`
}

// Phase 屏障同步的一批分配。构建后不可修改。
type Phase struct {
	name        string
	assignments []AgentAssignment
}

// NewPhase 创建阶段
func NewPhase(name string, assignments ...AgentAssignment) Phase {
	return Phase{name: name, assignments: cloneAssignments(assignments)}
}

// Name 阶段名
func (p Phase) Name() string { return p.name }

// Assignments 返回分配的副本
func (p Phase) Assignments() []AgentAssignment {
	return cloneAssignments(p.assignments)
}

// cloneAssignments 深拷贝，Task.Metadata 也不共享
func cloneAssignments(in []AgentAssignment) []AgentAssignment {
	out := make([]AgentAssignment, len(in))
	for i, a := range in {
		out[i] = AgentAssignment{AgentID: a.AgentID, Task: a.Task.Clone()}
	}
	return out
}

// Len 分配数
func (p Phase) Len() int { return len(p.assignments) }

// ExecutionPlan 单个作业的有序阶段，构建后不可修改
type ExecutionPlan struct {
	jobID   string
	domain  string
	phases  []Phase
	skipped []string
	direct  bool
}

// NewPlan 由调用方直接组装计划，并做结构校验
func NewPlan(jobID, domain string, phases ...Phase) (*ExecutionPlan, error) {
	plan := &ExecutionPlan{jobID: jobID, domain: domain, phases: append([]Phase(nil), phases...)}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

// JobID 作业 ID
func (p *ExecutionPlan) JobID() string { return p.jobID }

// Domain 领域
func (p *ExecutionPlan) Domain() string { return p.domain }

// Phases 返回阶段副本
func (p *ExecutionPlan) Phases() []Phase { return append([]Phase(nil), p.phases...) }

// Skipped 返回因无可用 Worker 被跳过的阶段名
func (p *ExecutionPlan) Skipped() []string { return append([]string(nil), p.skipped...) }

// Direct 计划是否退化为单 Worker 直连
func (p *ExecutionPlan) Direct() bool { return p.direct }

// AssignmentCount 所有阶段的分配总数
func (p *ExecutionPlan) AssignmentCount() int {
	n := 0
	for _, ph := range p.phases {
		n += ph.Len()
	}
	return n
}

// Validate 检查计划结构，失败返回 INVALID_PLAN
func (p *ExecutionPlan) Validate() error {
	if p == nil {
		return types.NewError(types.ErrInvalidPlan, "plan is nil")
	}
	if len(p.phases) == 0 {
		return types.NewError(types.ErrInvalidPlan, "plan has no phases")
	}
	seen := make(map[string]bool, len(p.phases))
	for i, ph := range p.phases {
		if ph.name == "" {
			return types.Errorf(types.ErrInvalidPlan, "phase %d has no name", i)
		}
		if seen[ph.name] {
			return types.Errorf(types.ErrInvalidPlan, "duplicate phase %q", ph.name)
		}
		seen[ph.name] = true
		if len(ph.assignments) == 0 {
			return types.Errorf(types.ErrInvalidPlan, "phase %q has no assignments", ph.name)
		}
		for j, a := range ph.assignments {
			if a.AgentID == "" {
				return types.Errorf(types.ErrInvalidPlan, "phase %q assignment %d has no agent", ph.name, j)
			}
		}
	}
	return nil
}

// PlanRequest BuildPlan 的输入
type PlanRequest struct {
	JobID          string
	Text           string
	Context        types.TaskContext
	Classification types.Classification
	// Domain 为空时自动判定
	Domain string
	// Profiles 按注册顺序的画像快照
	Profiles []types.WorkerProfile
}

// Planner 按领域定义构建执行计划
type Planner struct {
	domains     map[string]DomainDefinition
	maxPerPhase int
	scorer      *router.Scorer
	logger      *zap.Logger
}

// NewPlanner 创建计划器。domains 为空时使用 DefaultDomains。
func NewPlanner(domains []DomainDefinition, maxPerPhase int, scorer *router.Scorer, logger *zap.Logger) (*Planner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scorer == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "planner requires a scorer")
	}
	if maxPerPhase <= 0 {
		return nil, types.Errorf(types.ErrInvalidConfig, "max assignments per phase must be positive, got %d", maxPerPhase)
	}
	if len(domains) == 0 {
		domains = DefaultDomains()
	}

	byName := make(map[string]DomainDefinition, len(domains))
	for _, d := range domains {
		if d.Name == "" || len(d.Phases) == 0 {
			return nil, types.Errorf(types.ErrInvalidConfig, "domain %q must have a name and phases", d.Name)
		}
		if _, dup := byName[d.Name]; dup {
			return nil, types.Errorf(types.ErrInvalidConfig, "duplicate domain %q", d.Name)
		}
		for _, ph := range d.Phases {
			if ph.Name == "" || len(ph.RequiredCapabilities) == 0 {
				return nil, types.Errorf(types.ErrInvalidConfig, "domain %q has a phase without name or capabilities", d.Name)
			}
		}
		byName[d.Name] = d
	}
	if _, ok := byName[DomainGeneral]; !ok {
		for _, d := range DefaultDomains() {
			if d.Name == DomainGeneral {
				byName[DomainGeneral] = d
			}
		}
	}

	return &Planner{
		domains:     byName,
		maxPerPhase: maxPerPhase,
		scorer:      scorer,
		logger:      logger.With(zap.String("component", "planner")),
	}, nil
}

// ResolveDomain 返回显式领域或自动判定的领域。未知的显式领域返回 INVALID_PLAN。
func (p *Planner) ResolveDomain(req PlanRequest) (string, error) {
	if req.Domain == "" {
		d := DetectDomain(req.Classification, req.Text)
		if _, ok := p.domains[d]; !ok {
			d = DomainGeneral
		}
		return d, nil
	}
	if _, ok := p.domains[req.Domain]; !ok {
		return "", types.Errorf(types.ErrInvalidPlan, "unknown domain %q", req.Domain)
	}
	return req.Domain, nil
}

// BuildPlan 按领域阶段定义挑选能力相交的 Worker（注册顺序，受每阶段上限约束）。
// 没有可用 Worker 的阶段被跳过；全部跳过时退化为 SelectBest 选出的单个直连阶段。
func (p *Planner) BuildPlan(req PlanRequest) (*ExecutionPlan, error) {
	if len(req.Profiles) == 0 {
		return nil, types.NewError(types.ErrNoWorkers, "worker registry is empty")
	}
	domain, err := p.ResolveDomain(req)
	if err != nil {
		return nil, err
	}

	plan := &ExecutionPlan{jobID: req.JobID, domain: domain}
	for _, def := range p.domains[domain].Phases {
		limit := def.MaxAssignments
		if limit <= 0 || limit > p.maxPerPhase {
			limit = p.maxPerPhase
		}

		var assignments []AgentAssignment
		for _, prof := range req.Profiles {
			if len(assignments) == limit {
				break
			}
			if intersects(prof, def.RequiredCapabilities) {
				assignments = append(assignments, AgentAssignment{
					AgentID: prof.ID,
					Task:    newTask(req, domain, def.Name),
				})
			}
		}

		if len(assignments) == 0 {
			plan.skipped = append(plan.skipped, def.Name)
			p.logger.Debug("phase skipped, no eligible worker",
				zap.String("job_id", req.JobID),
				zap.String("domain", domain),
				zap.String("phase", def.Name),
			)
			continue
		}
		plan.phases = append(plan.phases, Phase{name: def.Name, assignments: assignments})
	}

	if len(plan.phases) == 0 {
		workerID, err := p.scorer.SelectBest(req.Classification, req.Context, router.Profiles(req.Profiles))
		if err != nil {
			return nil, err
		}
		plan.direct = true
		plan.phases = []Phase{{name: DirectPhase, assignments: []AgentAssignment{{
			AgentID: workerID,
			Task:    newTask(req, domain, DirectPhase),
		}}}}
	}

	p.logger.Debug("plan built",
		zap.String("job_id", req.JobID),
		zap.String("domain", domain),
		zap.Int("phases", len(plan.phases)),
		zap.Int("assignments", plan.AssignmentCount()),
		zap.Strings("skipped", plan.skipped),
	)

	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("build plan: %w", err)
	}
	return plan, nil
}

func intersects(p types.WorkerProfile, required []string) bool {
	for _, c := range required {
		if p.HasCapability(c) {
			return true
		}
	}
	return false
}

func newTask(req PlanRequest, domain, phase string) types.Task {
	return types.Task{
		JobID:    req.JobID,
		Phase:    phase,
		Text:     req.Text,
		Context:  req.Context,
		Metadata: map[string]string{"domain": domain},
	}
}
