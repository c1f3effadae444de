// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的任务路由指标采集能力，覆盖
选择、分配执行、降级、作业、统计持久化、HTTP 与数据库七个维度。

# 概述

Collector 通过 promauto.With 注册到调用方提供的 prometheus.Registerer，
测试可使用独立 Registry 避免重复注册。nil Collector 的所有方法均为空操作，
便于各组件在未配置指标时直接调用。

# 主要能力

  - 路由指标：按 worker_id/reason 统计选择次数。
  - 分配指标：调用次数、耗时直方图、在途 Gauge、Worker 成本。
  - 降级指标：按 from/to/outcome 统计。
  - 作业指标：按 domain/status 统计次数与耗时。
*/
package metrics
