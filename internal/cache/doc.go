// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 提供基于 Redis 的键值与列表读写，供统计快照存储使用。

# 核心类型

  - Manager：持有 go-redis 客户端，提供 Get/Set/Delete、
    GetJSON/SetJSON 以及 PushJSON/Range（有界列表）操作。
  - Config：地址、密码、连接池大小、默认 TTL 与健康检查间隔，
    可由 config.RedisConfig 通过 ConfigFromRedis 构造。

# 主要能力

  - 健康检查：后台定时 Ping，异常时通过 zap 日志告警，Close 后退出。
  - 错误语义：ErrCacheMiss 哨兵错误与 IsCacheMiss 判断函数。
*/
package cache
