// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 taskrouter 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 画像构造: Profile / PrimaryProfile
  - 并发探针: InFlightTracker 与 TrackingWorker，记录并发峰值与每次执行的
    起止时间，用于验证并发上限与阶段屏障
  - 断言工具: AssertJSONEqual / AssertEventuallyTrue / AssertErrorCode

# 子包

  - testutil/mocks: MockWorker，支持 Builder 模式、延迟与错误注入
  - testutil/fixtures: 预置 Worker 目录（TwoWorkerConfig、MultilingualConfig）
    与默认类别表下结果已知的任务样例

# 使用示例

	ctx := testutil.TestContext(t)
	w := mocks.NewMockWorker().WithResponse("ok").WithDelay(10 * time.Millisecond)
	res, err := w.Execute(ctx, &types.Task{Text: "hello"})
*/
package testutil
