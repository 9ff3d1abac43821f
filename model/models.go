package model

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&Teen{},
		&Staff{},
		&Challenge{},
		&Task{},
		&Badge{},
		&Submission{},
		&Progress{},
		&TeenBadge{},
		&RaffleEntry{},
		&RaffleDraw{},
		&Transaction{},
		&PaymentGatewayEvent{},
		&Notification{},
	}
}
