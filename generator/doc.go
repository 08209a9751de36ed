// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

/*
Package generator 提供图像生成编排器。

# 概述

Orchestrator 按优先级依次尝试各个图像服务提供方，首个成功的结果立即返回；
全部失败时根据提示词提取关键词，退回到图库搜索。每次顶层调用都会记录到
仅追加的内存历史中。

# 核心接口

  - Orchestrator: 生成编排，Generate / CancelCurrentGeneration / History / SuccessRate
  - Executor: 执行 RequestPlan 并校验图片，由 image.Transport 实现
  - Breaker: 可选的按提供方熔断
  - MetricsRecorder: 生成与尝试的指标上报

# 取消语义

同一时刻每个 Orchestrator 只有一个活动生成。新的 Generate 会以 ErrSuperseded
取消前一个调用；CancelCurrentGeneration 以 ErrCancelRequested 取消。取消总是
优先于其他错误，并立即终止提供方链。
*/
package generator
