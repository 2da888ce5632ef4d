package observability

const (
	AttrServiceName     = "service.name"
	AttrServiceVersion  = "service.version"
	AttrSessionID       = "session.id"
	AttrToolName        = "tool.name"
	AttrMCPServer       = "mcp.server"
	AttrLLMModel        = "llm.model"
	AttrLLMProvider     = "llm.provider"
	AttrLLMTokensInput  = "llm.tokens.input"
	AttrLLMTokensOutput = "llm.tokens.output"
	AttrErrorType       = "error.type"

	SpanLoopIteration = "loop.iteration"
	SpanLLMCall       = "loop.llm_call"
	SpanToolExecution = "tools.dispatch"
	SpanMCPCall       = "mcp.call"

	DefaultServiceName  = "probe-agent"
	DefaultSamplingRate = 1.0
	DefaultOTLPEndpoint = "localhost:4317"
	DefaultMetricsPath  = "/metrics"
)
