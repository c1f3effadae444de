// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 coordinator 把复杂任务拆成按领域定义的有序阶段，并在共享 Goroutine 池上执行。

# 计划

Planner 先确定领域（显式指定或 DetectDomain 自动判定），再按领域的阶段定义
为每个阶段挑选能力相交的 Worker（注册顺序，受每阶段上限约束）。
没有可用 Worker 的阶段被跳过；全部跳过时退化为由 router.Scorer 选出的
单 Worker "direct" 阶段。ExecutionPlan 构建后不可修改。

# 执行

Coordinator.Run 逐阶段执行：阶段内所有分配并发投递到共享池，
全部结束后才开始下一阶段。并发上限等于池的 MaxWorkers。
每个分配经 fallback.Manager 执行（主 Worker + 至多一次降级），
结束后立即交给 Recorder。单个分配失败不影响其他分配；
ctx 取消后尚未派发的分配以 JOB_CANCELLED 结束且不计入统计。
*/
package coordinator
