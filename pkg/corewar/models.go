// Package corewar holds the hill data types passed between the API, the broadcast bus and
// the document store.
package corewar

// Standard identifies the redcode ruleset a hill plays under.
type Standard int

const (
	StandardICWS86 Standard = iota
	StandardICWS88
	StandardICWS94Draft
)

// Hill is a leaderboard of warriors competing under a fixed set of rules.
type Hill struct {
	ID       string    `json:"id" bson:"_id,omitempty"`
	Rules    Rules     `json:"rules" bson:"rules"`
	Warriors []Warrior `json:"warriors" bson:"warriors"`
}

// DocumentID implements docstore.Identifiable.
func (h Hill) DocumentID() string {
	return h.ID
}

// Rules describes how battles on a hill are played.
type Rules struct {
	Rounds  int     `json:"rounds" bson:"rounds"`
	Size    int     `json:"size" bson:"size"`
	Options Options `json:"options" bson:"options"`
}

// Options configures the MARS core for every round. Every field is optional; an unset field
// stays nil so it reads back as null rather than zero.
type Options struct {
	CoreSize           *int         `json:"coresize,omitempty" bson:"coresize,omitempty"`
	MaximumCycles      *int         `json:"maximumCycles,omitempty" bson:"maximumCycles,omitempty"`
	InitialInstruction *Instruction `json:"initialInstruction,omitempty" bson:"initialInstruction,omitempty"`
	InstructionLimit   *int         `json:"instructionLimit,omitempty" bson:"instructionLimit,omitempty"`
	MaxTasks           *int         `json:"maxTasks,omitempty" bson:"maxTasks,omitempty"`
	MinSeparation      *int         `json:"minSeparation,omitempty" bson:"minSeparation,omitempty"`
	Standard           *Standard    `json:"standard,omitempty" bson:"standard,omitempty"`
}

// Instruction is the template the core is filled with before warriors are loaded.
type Instruction struct {
	Address  *int     `json:"address,omitempty" bson:"address,omitempty"`
	Opcode   *string  `json:"opcode,omitempty" bson:"opcode,omitempty"`
	Modifier *string  `json:"modifier,omitempty" bson:"modifier,omitempty"`
	AOperand *Operand `json:"aOperand,omitempty" bson:"aOperand,omitempty"`
	BOperand *Operand `json:"bOperand,omitempty" bson:"bOperand,omitempty"`
}

// Operand is one addressed operand of an instruction.
type Operand struct {
	Mode    *string `json:"mode,omitempty" bson:"mode,omitempty"`
	Address *int    `json:"address,omitempty" bson:"address,omitempty"`
}

// Warrior is a competitor program. Redcode is opaque at this layer.
type Warrior struct {
	Redcode string `json:"redcode" bson:"redcode"`
}

// MutationResult is returned by every hill mutation.
type MutationResult struct {
	Success bool `json:"success"`
}
