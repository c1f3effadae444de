// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package main 提供 TaskRouter 的命令行入口。

# 子命令

  - serve：启动诊断 HTTP 服务（/healthz、/readyz、/version、/metrics、
    /debug/stats、/debug/queue、/debug/snapshot、/debug/history），按配置
    启用 Redis 统计快照与数据库作业历史，收到 SIGINT/SIGTERM 后优雅关闭。
  - classify：输出分类结果、判定的领域与全部 Worker 的评分明细（JSON）。
  - run：对配置的 Worker 提交一次作业并输出 JobResult 与统计报告（JSON）。
  - migrate：作业历史表结构迁移（up、down、status、version、info）。
  - version、help。

配置加载顺序为默认值、YAML 文件、TASKROUTER_* 环境变量。
Version、BuildTime、GitCommit 通过 ldflags 注入。
*/
package main
