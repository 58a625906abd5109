package lua

// snapshot of the stock globals, hidden from help and dir
var builtinsRc = `
_builtins = {}
for name, _ in pairs(_G) do
    _builtins[name] = true
end
`

var cmdRc = `
func _is_public(name)
    return _builtins[name] != true and name:sub(1, 1) != '_'
end

func help()
    local funcs = {}
    local vars = {}
    local vkeys = {}
    for name, val in pairs(_G) do
        if _is_public(name) then
            if type(val) == 'function' then
                table.insert(funcs, name)
            else
                vars[name] = val
                table.insert(vkeys, name)
            end
        end
    end
    table.sort(funcs)
    print 'Functions:'
    for _, name in ipairs(funcs) do
        print(name)
    end
    print

    table.sort(vkeys)
    print 'Variables:'
    for _, name in ipairs(vkeys) do
        print name '=' vars[name]
    end
end

func dir()
    local ret = {}
    for name, _ in pairs(_G) do
        if _is_public(name) then
            table.insert(ret, name)
        end
    end
    table.sort(ret)
    return ret
end

func ps()
    print 'PID PPID SID S'
    for _, p in ipairs(procs()) do
        print(string.format('%3d %4d %3d %s', p.pid, p.ppid, p.sid, p.state))
    end
end

func ident(name)
    if name != nil then
        local n, err = iam(name)
        if err != nil then return err end
    end
    return whoami()
end
`
