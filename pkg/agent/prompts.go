package agent

// Phase instructions appended to the aggregated context for each tick
// phase. The model's reply to a world or task prompt replaces the
// corresponding buffer wholesale; the execution prompt must yield a single
// JSON function call.

const worldInstruction = `You maintain the world context of an autonomous agent.
Review the context above and produce an updated world context: one
observation per line, most relevant first. Reply with the observations
only, no commentary.`

const taskInstruction = `You plan work for an autonomous agent.
Take the next task from the context above and break it into concrete
execution steps. Reply with the steps only, separated by the "|"
character, in the order they should run.`

const executionInstruction = `You drive an autonomous agent's capabilities.
Carry out the execution step above by calling exactly one capability.
Reply with a single JSON object of the form
{"class": "<capability>", "function": "<action>", "parameters": {...}}
and nothing else: no prose, no code fences, no trailing text.`
