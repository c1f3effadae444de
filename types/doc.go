// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 taskrouter 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 classifier、registry、
router、fallback、coordinator、feedback 等模块提供统一的类型契约。

# 核心接口与类型

  - Worker / WorkerFunc — 外部执行边界（Execute(ctx, *Task) (*Result, error)）
  - WorkerProfile      — Worker 静态画像（能力标签、成本、延迟等级、准确率、语言）
  - TaskContext        — 调用方声明的语言与紧急程度
  - Classification     — 分类器输出（有序类别命中数 + 结构特征）
  - AssignmentResult   — 单个分配的结果，含主调用/降级调用记录
  - Error / ErrorCode  — 结构化错误体系

# Context 传播

WithJobID / WithTraceID 用于在 context 中透传作业标识，便于日志关联。
*/
package types
