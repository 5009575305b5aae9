package main

import (
	"sort"

	"github.com/chzyer/readline"

	"github.com/mit-dci/litnode/litrpc"
)

func (lc *litshClient) call(method string, args interface{}, reply interface{}) error {
	return lc.rpccon.Call("LitRPC."+method, args, reply)
}

func (lc *litshClient) completePeers(line string) []string {
	names := make([]string, 0)
	pReply := new(litrpc.ListPeersReply)
	if err := lc.call("ListPeers", litrpc.NoArgs{}, pReply); err != nil {
		return names
	}
	for _, p := range pReply.Peers {
		names = append(names, p.PubKey)
	}
	return names
}

// completeKnownPeers offers remembered peers with their address so the
// result can be used as a connect string.
func (lc *litshClient) completeKnownPeers(line string) []string {
	names := make([]string, 0)
	pReply := new(litrpc.ListPeersReply)
	if err := lc.call("ListPeers", litrpc.NoArgs{}, pReply); err != nil {
		return names
	}
	for _, p := range pReply.Peers {
		if p.Address != "" {
			names = append(names, p.PubKey+"@"+p.Address)
		}
	}
	return names
}

func (lc *litshClient) completeChannels(line string) []string {
	names := make([]string, 0)
	cReply := new(litrpc.ChannelListReply)
	if err := lc.call("ListChannels", litrpc.NoArgs{}, cReply); err != nil {
		return names
	}
	for _, c := range cReply.Channels {
		names = append(names, c.ChannelID.String()+" "+c.Counterparty.String())
	}
	return names
}

func (lc *litshClient) NewAutoCompleter() readline.AutoCompleter {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	helpItems := make([]readline.PrefixCompleterInterface, 0, len(names))
	for _, name := range names {
		helpItems = append(helpItems, readline.PcItem(name))
	}

	return readline.NewPrefixCompleter(
		readline.PcItem("help", helpItems...),
		readline.PcItem("ls"),
		readline.PcItem("start"),
		readline.PcItem("halt"),
		readline.PcItem("stop"),
		readline.PcItem("adr"),
		readline.PcItem("bal"),
		readline.PcItem("sync"),
		readline.PcItem("con",
			readline.PcItemDynamic(lc.completeKnownPeers)),
		readline.PcItem("dis",
			readline.PcItemDynamic(lc.completePeers)),
		readline.PcItem("fund",
			readline.PcItemDynamic(lc.completeKnownPeers)),
		readline.PcItem("close",
			readline.PcItemDynamic(lc.completeChannels)),
		readline.PcItem("graph"),
		readline.PcItem("inv"),
		readline.PcItem("pay"),
		readline.PcItem("send",
			readline.PcItemDynamic(lc.completePeers)),
		readline.PcItem("pinfo"),
		readline.PcItem("ev"),
		readline.PcItem("ack"),
		readline.PcItem("exit"),
	)
}
