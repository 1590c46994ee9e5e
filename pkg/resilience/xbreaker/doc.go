// Package xbreaker 提供 HTTP 传输层使用的熔断器。
//
// # 状态机
//
//   - StateClosed（关闭）：正常放行，统计连续失败次数
//   - StateOpen（打开）：连续失败达到阈值后进入，直接拒绝请求
//   - StateHalfOpen（半开）：恢复时间到期后由下一次 CanExecute 触发，
//     最多放行 HalfOpenMaxCalls 个探测请求
//
// 半开状态下任意一次失败立即回到打开状态，任意一次成功回到关闭状态并清零计数。
// 所有状态变更在同一把互斥锁内完成，并发调用者观察到的是线性化的结果。
//
// # Gate
//
// 传输层通过 [Gate] 接口使用熔断器：Acquire 获取一次放行许可，
// 调用结束后在许可上报告 Success / Failure / Abandon。
// 内置两种实现：
//   - [Breaker]：本包的连续失败计数状态机（默认）
//   - [GobreakerGate]：基于 [sony/gobreaker/v2] TwoStepCircuitBreaker 的适配器
//
// 调用方被取消（没有结果）时应调用 Abandon，归还半开探测名额，
// 避免被取消的探测把熔断器卡在半开状态。
//
// [sony/gobreaker/v2]: https://github.com/sony/gobreaker
package xbreaker
