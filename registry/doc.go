// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 registry 保存 Worker 的静态画像与动态性能统计。

# 概述

Registry 在进程启动时构建一次，并以引用方式传给评分器、协调器与反馈记录器，
不存在包级全局状态。画像注册后不可变，对外只返回深拷贝；统计通过
RecordOutcome 按 Worker 加锁更新，多个分配并发结束时不会丢失更新。

# 核心类型

  - Registry：按注册顺序保存画像、执行器与统计，至多一个主 Worker。
  - WorkerStats：使用次数、成功次数、响应时间环形缓冲区与累计成本。
  - RingBuffer：固定容量的循环缓冲区，溢出时淘汰最旧样本。
  - StatsSnapshot：统计的只读快照，含派生的成功率与平均响应时间。
*/
package registry
