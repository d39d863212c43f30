package events

import (
	"encoding/json"
	"fmt"
)

// Wire form of an event
type Message struct {
	Type       Kind  `json:"type"`
	ContractID int64 `json:"contract_id"`
}

func NewMessage(e Event) *Message {
	return &Message{
		Type:       e.Kind(),
		ContractID: e.ContractID(),
	}
}

func (self *Message) MarshalBinary() (data []byte, err error) {
	return json.Marshal(self)
}

func (self *Message) UnmarshalBinary(data []byte) (err error) {
	return json.Unmarshal(data, self)
}

func (self *Message) Event() (Event, error) {
	if self.ContractID <= 0 {
		return nil, fmt.Errorf("%w: missing contract id", ErrUnknownEvent)
	}
	return New(self.Type, self.ContractID)
}
