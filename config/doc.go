// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package config 提供 TaskRouter 的配置加载。

配置按 默认值 → YAML 文件 → 环境变量（TASKROUTER_ 前缀）的顺序合并，
进程启动时加载一次，之后作为不可变对象交给 Engine。

# 配置分区

  - server: 健康检查与 /metrics 端口、超时
  - router: 类别权重、评分常量、降级 Worker、并发上限、分配超时
  - workers: Worker 画像与执行器
  - categories / domains: 分类器类别与领域阶段定义（可选）
  - stats / redis: 统计快照
  - database: 作业历史
  - log / telemetry: 日志与遥测

列表与映射字段只能通过 YAML 设置；Validate 汇总所有问题后一次性返回。
*/
package config
