// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

/*
Package metrics 提供基于 Prometheus 的指标采集能力，覆盖
HTTP 请求、图像生成、提供方尝试、图库回退与熔断器状态。

# 概述

Collector 通过 promauto 注册全部指标，按 namespace 隔离。Collector
实现 generator.MetricsRecorder，可以直接注入编排器。

# 主要能力

  - HTTP 指标：请求总数、请求耗时、请求/响应体大小，
    按 method/path/status 分组，状态码归类为 2xx/3xx/4xx/5xx。
  - 生成指标：按结果（success/fallback/cancelled/unavailable/invalid_input）
    统计的调用次数与耗时。
  - 提供方指标：按 provider/status 统计的尝试次数与耗时。
  - 回退与熔断：图库回退结果计数、熔断器状态 Gauge、活跃会话数。
*/
package metrics
