// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 migration 管理作业历史表（job_records、assignment_records）的 Schema 迁移，
支持 PostgreSQL、MySQL 与 SQLite，基于 golang-migrate 实现。

# 概述

各方言的 SQL 迁移文件通过 embed.FS 内嵌，按方言表选择驱动与目录。
SQLite 使用纯 Go 的 glebarez/go-sqlite 驱动，与 history 包的 GORM 存储共用同一驱动。

# 核心类型

  - Migrator：Up/Down/Version/Status/Info/Close。
  - DefaultMigrator：基于 golang-migrate 的实现。
  - CLI：taskrouter migrate 子命令的终端输出层。

工厂函数 NewMigratorFromConfig / NewMigratorFromDatabaseConfig 直接读取
config.DatabaseConfig；ConfigFromDatabase 只做转换，不建立连接。
*/
package migration
