// 包 workers 提供命令行与演示使用的内置 Worker 执行器。
// 真实的模型客户端在进程外实现 types.Worker，不属于本模块。
package workers
