// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

// 包 history 持久化已完成作业的计划汇总与分配结果（job_records、assignment_records），
// 基于 GORM，支持 postgres、mysql 与 sqlite。写入失败只影响历史记录，不影响作业结果。
package history
