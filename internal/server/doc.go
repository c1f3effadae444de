// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供诊断 HTTP 服务器（健康检查、就绪检查、Prometheus 指标）的生命周期管理。

# 核心类型

  - Manager：封装 net/http.Server，提供非阻塞 Start、带超时的 Shutdown，
    以及监听 SIGINT/SIGTERM 或 ctx 结束的 WaitForShutdown。
  - HealthHandler：/healthz 存活探针与 /readyz 就绪探针，就绪探针依次
    执行注册的 HealthCheck（Redis、数据库）。
*/
package server
