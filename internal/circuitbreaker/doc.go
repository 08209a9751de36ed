// Copyright (c) ImageFlow Authors.
// Licensed under the MIT License.

/*
Package circuitbreaker 提供按图像服务提供方的熔断器。

# 状态机

  - Closed: 正常调用，连续失败达到阈值后转为 Open
  - Open: 直接拒绝调用并返回 CIRCUIT_OPEN，ResetTimeout 之后转为 HalfOpen
  - HalfOpen: 允许有限次试探调用，成功则恢复 Closed，失败则重新 Open

调用是同步执行的，超时由调用方的 context 控制。调用方 context 已取消的失败
以及客户端错误（非法尺寸、未知风格）不计入失败次数。
*/
package circuitbreaker
