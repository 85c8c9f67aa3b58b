package main

import (
	"flag"
	"fmt"
	"os"
)

func completionCmd() {
	fs := flag.NewFlagSet("completion", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: spoonemu completion <bash|zsh|fish>\n\n")
		fmt.Fprintf(os.Stderr, "Generate shell completion scripts.\n\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  # Bash\n")
		fmt.Fprintf(os.Stderr, "  spoonemu completion bash > /usr/local/etc/bash_completion.d/spoonemu\n")
		fmt.Fprintf(os.Stderr, "  # Zsh\n")
		fmt.Fprintf(os.Stderr, "  spoonemu completion zsh > \"${fpath[1]}/_spoonemu\"\n")
		fmt.Fprintf(os.Stderr, "  # Fish\n")
		fmt.Fprintf(os.Stderr, "  spoonemu completion fish > ~/.config/fish/completions/spoonemu.fish\n")
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(1)
	}

	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: shell name is required (bash, zsh, or fish)\n\n")
		fs.Usage()
		os.Exit(1)
	}

	shell := fs.Arg(0)
	switch shell {
	case "bash":
		fmt.Print(generateBashCompletion())
	case "zsh":
		fmt.Print(generateZshCompletion())
	case "fish":
		fmt.Print(generateFishCompletion())
	default:
		fmt.Fprintf(os.Stderr, "Error: unsupported shell %q (use bash, zsh, or fish)\n", shell)
		os.Exit(1)
	}
}

func generateBashCompletion() string {
	return `# bash completion for spoonemu                           -*- shell-script -*-

_spoonemu() {
    local cur prev words cword
    _init_completion || return

    local commands="run fetch check history completion version help"

    local run_flags="--type --timeout --script-timeout --match --force --output --body --no-history --no-highlight --proxy --var"
    local fetch_flags="--type --timeout --body --copy --proxy"
    local check_flags="--url --quiet"
    local history_flags="--limit --search --clear --logs"

    local output_formats="text json"
    local message_types="response request"
    local match_modes="pattern literal"
    local shells="bash zsh fish"

    if [[ ${cword} -eq 1 ]]; then
        COMPREPLY=($(compgen -W "${commands}" -- "${cur}"))
        return
    fi

    local command="${words[1]}"

    case "${prev}" in
        --output)
            COMPREPLY=($(compgen -W "${output_formats}" -- "${cur}"))
            return
            ;;
        --type)
            COMPREPLY=($(compgen -W "${message_types}" -- "${cur}"))
            return
            ;;
        --match)
            COMPREPLY=($(compgen -W "${match_modes}" -- "${cur}"))
            return
            ;;
        --timeout|--script-timeout|--proxy|--var|--url|--limit|--search)
            return
            ;;
    esac

    case "${command}" in
        run)
            if [[ "${cur}" == -* ]]; then
                COMPREPLY=($(compgen -W "${run_flags}" -- "${cur}"))
            else
                COMPREPLY=($(compgen -f -X '!*.js' -- "${cur}"))
                _filedir -d
            fi
            ;;
        fetch)
            if [[ "${cur}" == -* ]]; then
                COMPREPLY=($(compgen -W "${fetch_flags}" -- "${cur}"))
            fi
            ;;
        check)
            if [[ "${cur}" == -* ]]; then
                COMPREPLY=($(compgen -W "${check_flags}" -- "${cur}"))
            else
                COMPREPLY=($(compgen -f -X '!*.js' -- "${cur}"))
                _filedir -d
            fi
            ;;
        history)
            COMPREPLY=($(compgen -W "${history_flags}" -- "${cur}"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "${shells}" -- "${cur}"))
            ;;
    esac
}

complete -F _spoonemu spoonemu
`
}

func generateZshCompletion() string {
	return `#compdef spoonemu

# zsh completion for spoonemu

_spoonemu() {
    local -a commands
    commands=(
        'run:Fetch a URL and run a server script against the response'
        'fetch:Fetch a URL and print what a script would see'
        'check:Validate server scripts and print their metadata'
        'history:List, search or clear recorded runs'
        'completion:Generate shell completion scripts'
        'version:Print version information'
        'help:Show help message'
    )

    _arguments -C \
        '1:command:->command' \
        '*::arg:->args'

    case $state in
        command)
            _describe -t commands 'spoonemu commands' commands
            ;;
        args)
            case $words[1] in
                run)
                    _arguments \
                        '--type[Message type]:type:(response request)' \
                        '--timeout[HTTP request timeout]:timeout:' \
                        '--script-timeout[Script execution timeout]:timeout:' \
                        '--match[Header name matching]:mode:(pattern literal)' \
                        '--force[Run even when the script metadata rejects the URL]' \
                        '--output[Output format]:format:(text json)' \
                        '--body[Show the response body]' \
                        '--no-history[Do not record this run]' \
                        '--no-highlight[Disable body syntax highlighting]' \
                        '--proxy[Proxy URL]:proxy:' \
                        '*--var[Template variable key=value]:variable:' \
                        '1:script file:_files -g "*.js"' \
                        '2:url:_urls'
                    ;;
                fetch)
                    _arguments \
                        '--type[Message type]:type:(response request)' \
                        '--timeout[HTTP request timeout]:timeout:' \
                        '--body[Print the response body]' \
                        '--copy[Copy the response headers to the clipboard]' \
                        '--proxy[Proxy URL]:proxy:' \
                        '1:url:_urls'
                    ;;
                check)
                    _arguments \
                        '--url[Report whether each script would run for this URL]:url:_urls' \
                        '--quiet[Only print OK/FAIL lines]' \
                        '*:script file:_files -g "*.js"'
                    ;;
                history)
                    _arguments \
                        '--limit[Maximum number of runs to show]:limit:' \
                        '--search[Fuzzy search by script name and URL]:query:' \
                        '--clear[Delete all recorded runs]' \
                        '--logs[Show script logs for each run]'
                    ;;
                completion)
                    _arguments \
                        '1:shell:(bash zsh fish)'
                    ;;
            esac
            ;;
    esac
}

_spoonemu "$@"
`
}

func generateFishCompletion() string {
	return `# fish completion for spoonemu

# Disable file completions by default
complete -c spoonemu -f

# Subcommands
complete -c spoonemu -n '__fish_use_subcommand' -a run -d 'Fetch a URL and run a server script against the response'
complete -c spoonemu -n '__fish_use_subcommand' -a fetch -d 'Fetch a URL and print what a script would see'
complete -c spoonemu -n '__fish_use_subcommand' -a check -d 'Validate server scripts and print their metadata'
complete -c spoonemu -n '__fish_use_subcommand' -a history -d 'List, search or clear recorded runs'
complete -c spoonemu -n '__fish_use_subcommand' -a completion -d 'Generate shell completion scripts'
complete -c spoonemu -n '__fish_use_subcommand' -a version -d 'Print version information'
complete -c spoonemu -n '__fish_use_subcommand' -a help -d 'Show help message'

# run flags
complete -c spoonemu -n '__fish_seen_subcommand_from run' -l type -d 'Message type' -ra 'response request'
complete -c spoonemu -n '__fish_seen_subcommand_from run' -l timeout -d 'HTTP request timeout' -r
complete -c spoonemu -n '__fish_seen_subcommand_from run' -l script-timeout -d 'Script execution timeout' -r
complete -c spoonemu -n '__fish_seen_subcommand_from run' -l match -d 'Header name matching' -ra 'pattern literal'
complete -c spoonemu -n '__fish_seen_subcommand_from run' -l force -d 'Run even when the script metadata rejects the URL'
complete -c spoonemu -n '__fish_seen_subcommand_from run' -l output -d 'Output format' -ra 'text json'
complete -c spoonemu -n '__fish_seen_subcommand_from run' -l body -d 'Show the response body'
complete -c spoonemu -n '__fish_seen_subcommand_from run' -l no-history -d 'Do not record this run'
complete -c spoonemu -n '__fish_seen_subcommand_from run' -l no-highlight -d 'Disable body syntax highlighting'
complete -c spoonemu -n '__fish_seen_subcommand_from run' -l proxy -d 'Proxy URL' -r
complete -c spoonemu -n '__fish_seen_subcommand_from run' -l var -d 'Template variable key=value' -r
complete -c spoonemu -n '__fish_seen_subcommand_from run' -F

# fetch flags
complete -c spoonemu -n '__fish_seen_subcommand_from fetch' -l type -d 'Message type' -ra 'response request'
complete -c spoonemu -n '__fish_seen_subcommand_from fetch' -l timeout -d 'HTTP request timeout' -r
complete -c spoonemu -n '__fish_seen_subcommand_from fetch' -l body -d 'Print the response body'
complete -c spoonemu -n '__fish_seen_subcommand_from fetch' -l copy -d 'Copy the response headers to the clipboard'
complete -c spoonemu -n '__fish_seen_subcommand_from fetch' -l proxy -d 'Proxy URL' -r

# check flags
complete -c spoonemu -n '__fish_seen_subcommand_from check' -l url -d 'Report whether each script would run for this URL' -r
complete -c spoonemu -n '__fish_seen_subcommand_from check' -l quiet -d 'Only print OK/FAIL lines'
complete -c spoonemu -n '__fish_seen_subcommand_from check' -F

# history flags
complete -c spoonemu -n '__fish_seen_subcommand_from history' -l limit -d 'Maximum number of runs to show' -r
complete -c spoonemu -n '__fish_seen_subcommand_from history' -l search -d 'Fuzzy search by script name and URL' -r
complete -c spoonemu -n '__fish_seen_subcommand_from history' -l clear -d 'Delete all recorded runs'
complete -c spoonemu -n '__fish_seen_subcommand_from history' -l logs -d 'Show script logs for each run'

# completion - shell names
complete -c spoonemu -n '__fish_seen_subcommand_from completion' -a 'bash zsh fish' -d 'Shell type'
`
}
