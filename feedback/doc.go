// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 feedback 把已结束的分配写回 Worker 统计，并提供只读的统计报告。

Recorder.Record 是修改 registry.WorkerStats 的唯一入口：
每次调用对单个 Worker 原子地累加使用次数、成功次数、响应时间样本与成本。
非法输入被修正为 0，未知 Worker 与内部异常只记录日志和
stats_recording_errors_total 指标，绝不向调用方返回错误。

StatsReport 按注册顺序列出每个 Worker 的成功率、平均响应时间、
累计成本与流量占比；没有新的记录时多次调用结果相同。

快照可以通过 Store 持久化：MemoryStore 用于测试与单机，
RedisStore 基于 internal/cache 写入最新快照与有界历史列表。
*/
package feedback
