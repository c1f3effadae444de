// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 database 提供基于 GORM 的数据库连接池管理，供作业历史存储使用。

# 核心类型

  - PoolManager：持有 GORM DB 与底层 sql.DB，提供 DB()、Ping()、
    Stats()、Close() 生命周期方法。
  - PoolConfig：最大空闲/打开连接数、连接生命周期与健康检查间隔。
  - TransactionFunc：事务回调函数类型。

# 主要能力

  - Open：按 config.DatabaseConfig 选择 postgres、mysql 或
    纯 Go 的 glebarez/sqlite 方言并建立连接池。
  - 健康检查：后台定时 PingContext 探活，Close 后退出。
  - 事务管理：WithTransaction 单次执行，WithTransactionRetry 对
    死锁、序列化失败、sqlite 锁冲突等错误指数退避重试。
*/
package database
