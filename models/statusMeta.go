package models

// StatusMeta is the display metadata clients render for a status badge.
type StatusMeta struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

var expenseStatusMeta = map[ExpenseStatus]StatusMeta{
	ExpenseStatusDraft:            {Label: "Draft", Color: "gray", Icon: "pencil"},
	ExpenseStatusPendingLeader:    {Label: "Pending Leader Review", Color: "amber", Icon: "clock"},
	ExpenseStatusLeaderApproved:   {Label: "Leader Approved", Color: "blue", Icon: "check"},
	ExpenseStatusLeaderDenied:     {Label: "Denied by Leader", Color: "red", Icon: "x"},
	ExpenseStatusPendingTreasury:  {Label: "Pending Treasury Review", Color: "amber", Icon: "clock"},
	ExpenseStatusTreasuryApproved: {Label: "Treasury Approved", Color: "blue", Icon: "check"},
	ExpenseStatusTreasuryDenied:   {Label: "Denied by Treasury", Color: "red", Icon: "x"},
	ExpenseStatusPendingFinance:   {Label: "Pending Payment", Color: "amber", Icon: "banknote"},
	ExpenseStatusCompleted:        {Label: "Completed", Color: "green", Icon: "check-circle"},
	ExpenseStatusCancelled:        {Label: "Cancelled", Color: "gray", Icon: "ban"},
}

var allocationStatusMeta = map[AllocationStatus]StatusMeta{
	AllocationStatusDraft:             {Label: "Draft", Color: "gray", Icon: "pencil"},
	AllocationStatusPending:           {Label: "Pending Review", Color: "amber", Icon: "clock"},
	AllocationStatusApproved:          {Label: "Approved", Color: "green", Icon: "check-circle"},
	AllocationStatusPartiallyApproved: {Label: "Partially Approved", Color: "teal", Icon: "check"},
	AllocationStatusDenied:            {Label: "Denied", Color: "red", Icon: "x"},
	AllocationStatusCancelled:         {Label: "Cancelled", Color: "gray", Icon: "ban"},
}

var unknownStatusMeta = StatusMeta{Label: "Unknown", Color: "gray", Icon: "question"}

func (s ExpenseStatus) Meta() StatusMeta {
	if meta, ok := expenseStatusMeta[s]; ok {
		return meta
	}
	return unknownStatusMeta
}

func (s AllocationStatus) Meta() StatusMeta {
	if meta, ok := allocationStatusMeta[s]; ok {
		return meta
	}
	return unknownStatusMeta
}
