package litrpc

// ------------------------- balance

type BalanceReply struct {
	Spendable uint64
	Total     uint64
}

func (r *LitRPC) Balance(args NoArgs, reply *BalanceReply) error {
	bal, err := r.Node.OnchainBalance()
	if err != nil {
		return err
	}
	reply.Spendable = bal.Spendable
	reply.Total = bal.Total
	return nil
}

// ------------------------- address

type AddressReply struct {
	Address string
}

// NewAddress hands out a fresh on-chain address to fund the wallet.
func (r *LitRPC) NewAddress(args NoArgs, reply *AddressReply) error {
	addr, err := r.Node.NewFundingAddress()
	if err != nil {
		return err
	}
	reply.Address = addr
	return nil
}

// ------------------------- sync

func (r *LitRPC) Sync(args NoArgs, reply *StatusReply) error {
	if err := r.Node.SyncWallets(); err != nil {
		return err
	}
	reply.Status = "synced"
	return nil
}
